package cli

import (
	"errors"
	"fmt"

	"github.com/five82/belfry/internal/app"
	"github.com/five82/belfry/internal/backup"
)

func openBackups(c *Context) (*app.Env, backup.Sink, error) {
	env, err := c.Env()
	if err != nil {
		return nil, nil, err
	}
	sink, err := backup.Open(c.Ctx, env.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("open backup store: %w", err)
	}
	return env, sink, nil
}

type BackupCreateCmd struct{}

func (b *BackupCreateCmd) Run(c *Context) error {
	env, sink, err := openBackups(c)
	if err != nil {
		return err
	}
	blob, err := env.Client.Backup(c.Ctx)
	if err != nil {
		return err
	}
	where, err := sink.Store(c.Ctx, backup.FileName(c.Now()), blob)
	if err != nil {
		return fmt.Errorf("store backup: %w", err)
	}
	env.Logger.Info("backup stored", "location", where, "bytes", len(blob))
	c.printf("Backup saved to %s\n", where)
	return nil
}

type BackupListCmd struct{}

func (b *BackupListCmd) Run(c *Context) error {
	_, sink, err := openBackups(c)
	if err != nil {
		return err
	}
	names, err := sink.List(c.Ctx)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	if len(names) == 0 {
		c.printf("No backups stored\n")
		return nil
	}
	for _, name := range names {
		c.printf("%s\n", name)
	}
	return nil
}

type BackupRestoreCmd struct {
	Name string `arg:"" optional:"" help:"Backup file name; defaults to the newest."`
	Yes  bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (b *BackupRestoreCmd) Run(c *Context) error {
	env, sink, err := openBackups(c)
	if err != nil {
		return err
	}
	name := b.Name
	if name == "" {
		names, err := sink.List(c.Ctx)
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}
		if len(names) == 0 {
			return fmt.Errorf("restore: %w", backup.ErrNotFound)
		}
		// Names carry the date, so the last one sorts newest.
		name = names[len(names)-1]
	}
	blob, err := sink.Load(c.Ctx, name)
	if errors.Is(err, backup.ErrNotFound) {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	if err != nil {
		return fmt.Errorf("load backup: %w", err)
	}

	if !b.Yes {
		if ok, err := confirm(c, "Restore backup", "Replace everything on the device with "+name+"?"); !ok {
			return err
		}
	}
	if err := env.Client.Restore(c.Ctx, blob); err != nil {
		return err
	}
	c.printf("Restored %s\n", name)
	return reported(env.Cache.LoadAll(c.Ctx))
}
