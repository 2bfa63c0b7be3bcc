package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/gitclub-console/cmd/console/internal/commands"
	"github.com/wolfeidau/gitclub-console/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Debug      bool             `help:"Enable debug mode."`
		Version    kong.VersionFlag `help:"Print the version and exit."`
		Config     kong.ConfigFlag  `help:"Path to a YAML configuration file." type:"existingfile"`
		Backend    string           `help:"gitclub backend URL" default:"http://localhost:5000" env:"GITCLUB_BACKEND_URL"`
		Profile    string           `help:"CLI profile name" default:"default" env:"GITCLUB_PROFILE"`
		ProfileDir string           `help:"directory holding CLI profiles" default:"" env:"GITCLUB_PROFILE_DIR"`
		CacheDir   string           `help:"directory for the CLI HTTP cache" default:"" env:"GITCLUB_CACHE_DIR"`

		Server commands.ServerCmd `cmd:"" help:"Run the web console"`
		Login  commands.LoginCmd  `cmd:"" help:"Log in to the backend"`
		Logout commands.LogoutCmd `cmd:"" help:"Log out and forget the profile"`
		Whoami commands.WhoamiCmd `cmd:"" help:"Show the logged in user"`
		Orgs   commands.OrgsCmd   `cmd:"" help:"Manage organizations"`
		Repos  commands.ReposCmd  `cmd:"" help:"Manage repositories"`
		Issues commands.IssuesCmd `cmd:"" help:"Browse and open issues"`
		Users  commands.UsersCmd  `cmd:"" help:"Look up users"`
		Jobs   commands.JobsCmd   `cmd:"" help:"List, schedule, cancel and watch jobs"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("console"),
		kong.Description("gitclub admin console and command line client."),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(commands.YAMLConfig, commands.DefaultConfigPaths...),
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)
	if !cli.Debug && cmd.Command() != "server" {
		// keep client command output readable
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	err := cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		Backend:    cli.Backend,
		Profile:    cli.Profile,
		ProfileDir: cli.ProfileDir,
		CacheDir:   cli.CacheDir,
	})
	cmd.FatalIfErrorf(err)
}
