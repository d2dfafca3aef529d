// Command dormctl runs maintenance tasks against the dormitory database.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/term"

	"dormitory-backend/config"
	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/backup"
	"dormitory-backend/internal/db"
	"dormitory-backend/internal/logger"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

const usage = `usage: dormctl [-config path] <command> [flags]

commands:
  migrate        create or update the database schema
  create-user    create a staff account
  backup         take a manual backup
  list-backups   list recorded backups
  restore        restore a backup by id
`

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "./config/config.yaml"), "path to the configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), *configPath, flag.Arg(0), flag.Args()[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dormctl:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// cli carries the streams a command reads from and reports to.
type cli struct {
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

func run(ctx context.Context, configPath, command string, args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	gormDB, err := db.Init(&cfg.Database, cfg.Log.Level, log)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	c := &cli{in: bufio.NewReader(in), raw: in, out: out}
	s := store.NewGormStore(gormDB, store.Options{Logger: log.Named("store")})
	backups := backup.NewService(cfg, gormDB, log)

	switch command {
	case "migrate":
		log.Info("schema is up to date")
		return nil
	case "create-user":
		return c.createUser(ctx, s, args)
	case "backup":
		b, err := backups.Create(ctx, backup.TriggerManual, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created backup %d (%s, %d bytes)\n", b.ID, b.Filename, b.SizeBytes)
		return nil
	case "list-backups":
		return c.listBackups(ctx, backups)
	case "restore":
		return c.restore(ctx, backups, log, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) createUser(ctx context.Context, s store.Store, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(c.out)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "login email")
	role := fs.String("role", string(model.RoleAdmin), "admin, manager or cashier")
	dormitoryID := fs.Int64("dormitory", 0, "limit the account to one dormitory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" {
		return errors.New("-name and -email are required")
	}
	switch model.Role(*role) {
	case model.RoleAdmin, model.RoleManager, model.RoleCashier:
	default:
		return fmt.Errorf("unknown role %q", *role)
	}

	password, err := c.readPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	u := &model.User{Name: *name, Email: strings.ToLower(*email), PasswordHash: hash, Role: model.Role(*role)}
	if *dormitoryID > 0 {
		if _, err := s.GetDormitory(ctx, store.AllDormitories(), *dormitoryID); err != nil {
			return err
		}
		u.DormitoryID = dormitoryID
	}
	if err := s.CreateUser(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created %s account %d for %s\n", u.Role, u.ID, u.Email)
	return nil
}

// readPassword prompts twice on a terminal and reads one line otherwise.
func (c *cli) readPassword() (string, error) {
	f, ok := c.raw.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fd := int(f.Fd())

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func (c *cli) listBackups(ctx context.Context, backups *backup.Service) error {
	list, err := backups.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTRIGGER\tSIZE\tFILE")
	for _, b := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Trigger, b.SizeBytes, b.Filename)
	}
	return w.Flush()
}

func (c *cli) restore(ctx context.Context, backups *backup.Service, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(c.out)
	id := fs.Int64("id", 0, "backup id to restore")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id is required")
	}

	b, err := backups.Get(ctx, *id)
	if err != nil {
		return err
	}
	if !*yes {
		fmt.Fprintf(c.out, "Restore %s? Every current row will be replaced. [y/N] ", b.Filename)
		answer, _ := c.in.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return errors.New("aborted")
		}
	}
	if err := backups.Restore(ctx, b.ID); err != nil {
		return err
	}
	log.Info("database restored", zap.Int64("backup_id", b.ID), zap.String("file", b.Filename))
	return nil
}
