package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
)

// indirections for tests
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.authService.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	a.printf("Registered %s (id %s). Use login to sign in.\n", u.Email, u.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.printf("Logged in as %s\n", u.Email)
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	u, err := a.authService.Profile(ctx)
	if err != nil {
		return err
	}
	a.printf("id:      %s\nname:    %s\nemail:   %s\ncreated: %s\nupdated: %s\n",
		u.ID, u.Name, u.Email,
		u.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		u.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		return err
	}
	a.printf("Access token refreshed\n")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.printf("Logged out\n")
	return nil
}

// describe turns an error into a message for the terminal.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, services.ErrNotLoggedIn):
		return "you are not logged in"
	case errors.Is(err, client.ErrThrottled):
		return "too many requests, try again later"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}
