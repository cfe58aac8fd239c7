package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDB)
	if err != nil {
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(c.ServerAddr, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:      c,
		authService: services.NewAuthService(apiClient, db),
		db:          db,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

// Run reads commands from stdin until exit or EOF.
func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()

	if err := a.authService.Ping(ctx); err != nil {
		a.printf("warning: %v\n", err)
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) status(ctx context.Context) string {
	email, err := a.authService.CurrentEmail(ctx)
	if err != nil {
		return "guest"
	}
	return email
}
