// Command pixshare is a terminal client for a PixShare server: sign in,
// manage albums and events, issue share links and open them as a guest.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"pixshare/internal/config"
	"pixshare/internal/logger"
	"pixshare/internal/sqldb"
	"pixshare/internal/tracing"
	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/client"
	"pixshare/pkg/credential"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"register":     {"-name N -email E -password P", cmdRegister},
	"login":        {"-email E -password P", cmdLogin},
	"logout":       {"", cmdLogout},
	"whoami":       {"", cmdWhoami},
	"profile":      {"", cmdProfile},
	"profile-edit": {"-name N -email E", cmdProfileUpdate},
	"password":     {"-current P -new P", cmdPassword},
	"watch":        {"", cmdWatch},
	"albums":       {"", cmdAlbums},
	"album":        {"-id N", cmdAlbum},
	"album-create": {"-name N", cmdAlbumCreate},
	"album-delete": {"-id N", cmdAlbumDelete},
	"upload":       {"-album N FILE...", cmdUpload},
	"photo-delete": {"-id N", cmdPhotoDelete},
	"events":       {"", cmdEvents},
	"event-create": {"-name N [-description D]", cmdEventCreate},
	"event-update": {"-id N [-name N] [-description D]", cmdEventUpdate},
	"event-delete": {"-id N", cmdEventDelete},
	"attach":       {"-event N -albums 1,2 [-link L]", cmdAttach},
	"detach":       {"-event N -album N", cmdDetach},
	"share":        {"-kind album|photo|event -id N [-comment]", cmdShare},
	"revoke":       {"-id N", cmdRevoke},
	"rotate":       {"-event N [-revoke-old]", cmdRotate},
	"open":         {"LINK", cmdOpen},
	"comments":     {"-photo N [-link L]", cmdComments},
	"comment":      {"-photo N [-link L] TEXT", cmdComment},
	"uncomment":    {"-photo N -id N", cmdCommentDelete},
	"dashboard":    {"", cmdDashboard},
}

type app struct {
	cfg    *config.Client
	client *client.Client
	out    io.Writer
	log    *slog.Logger
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pixshare:", describe(err))
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: pixshare COMMAND [flags]")
	for _, name := range names {
		fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].usage)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "pixshare", os.Getenv("PIXSHARE_TRACE"), os.Stderr)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := sqldb.OpenProfile(cfg.Profile)
	if err != nil {
		return err
	}
	defer db.Close()

	backend, err := credential.NewSQLBackend(db, cfg.WatchInterval, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	nav := client.NavigatorFunc(func() {
		fmt.Fprintln(os.Stderr, "Your session has ended. Run `pixshare login` to sign in again.")
	})
	c, err := client.New(cfg, backend, nav, log)
	if err != nil {
		return err
	}
	defer c.Close()

	a := &app{cfg: cfg, client: c, out: os.Stdout, log: log}
	return cmd.run(ctx, a, args[1:])
}

// describe turns err into the line shown to the user.
func describe(err error) string {
	var denied *capability.DeniedError
	switch {
	case errors.As(err, &denied) && denied.Decision == capability.DenyRedirectLogin:
		return "sign in first with `pixshare login`"
	case errors.As(err, &denied):
		return apperr.Message(err)
	}

	var he *apperr.HTTPError
	if errors.As(err, &he) || errors.Is(err, apperr.ErrNetwork) || errors.Is(err, apperr.ErrInvalidCredential) {
		return apperr.Message(err)
	}
	return err.Error()
}
