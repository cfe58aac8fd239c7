// Package cli implements the interactive authkeeper command line: a small
// REPL over the client AuthService with register, login, profile, refresh
// and logout commands. Passwords are read without echo.
package cli
