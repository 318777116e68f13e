// Package cli holds belfry's one-shot subcommands. Each command is a kong
// struct whose Run method receives a *Context.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/belfry/internal/app"
	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/notify"
)

// Exit codes returned by ExitCode.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitOffline    = 3
	ExitRejected   = 4
)

// Root is the kong command tree.
type Root struct {
	Config string `help:"Config file path." type:"path" placeholder:"PATH"`
	Prefs  string `help:"Dashboard preferences file path." type:"path" placeholder:"PATH"`
	Device string `help:"Device address, overriding the config." short:"d" placeholder:"HOST"`
	Debug  bool   `help:"Log debug output to stderr as well as the log file."`

	Version kong.VersionFlag `help:"Print version and exit."`

	Dash          DashCmd          `cmd:"" help:"Open the dashboard." default:"1"`
	Status        StatusCmd        `cmd:"" help:"Print device status."`
	Stop          StopCmd          `cmd:"" help:"Stop the playing melody."`
	Bells         BellsCmd         `cmd:"" help:"Enable, disable or toggle the bells."`
	TestMode      TestModeCmd      `cmd:"" name:"test-mode" help:"Toggle test mode."`
	EmergencyStop EmergencyStopCmd `cmd:"" name:"emergency-stop" help:"Halt all bells immediately."`
	Relay         struct {
		Set  RelaySetCmd  `cmd:"" help:"Drive a relay pin (0 is ON)."`
		Test RelayTestCmd `cmd:"" help:"Pulse a single bell."`
	} `cmd:"" help:"Drive the bell relays directly."`
	Melody struct {
		List   MelodyListCmd   `cmd:"" help:"List stored melodies." default:"1"`
		Play   MelodyPlayCmd   `cmd:"" help:"Play a stored melody."`
		Notes  MelodyNotesCmd  `cmd:"" help:"Print the notes of a stored melody."`
		Save   MelodySaveCmd   `cmd:"" help:"Store a new melody."`
		Edit   MelodyEditCmd   `cmd:"" help:"Rename or rewrite a stored melody."`
		Test   MelodyTestCmd   `cmd:"" help:"Play notes without storing them."`
		Delete MelodyDeleteCmd `cmd:"" help:"Delete a stored melody."`
	} `cmd:"" help:"Manage melodies."`
	Weekly struct {
		List   WeeklyListCmd   `cmd:"" help:"List weekly schedules." default:"1"`
		Add    WeeklyAddCmd    `cmd:"" help:"Add a weekly schedule."`
		Edit   WeeklyEditCmd   `cmd:"" help:"Change fields of a weekly schedule."`
		Toggle WeeklyToggleCmd `cmd:"" help:"Activate or deactivate a weekly schedule."`
		Delete WeeklyDeleteCmd `cmd:"" help:"Delete a weekly schedule."`
	} `cmd:"" help:"Manage weekly schedules."`
	Event struct {
		List   EventListCmd   `cmd:"" help:"List special events." default:"1"`
		Add    EventAddCmd    `cmd:"" help:"Add a special event."`
		Edit   EventEditCmd   `cmd:"" help:"Change fields of a special event."`
		Toggle EventToggleCmd `cmd:"" help:"Activate or deactivate a special event."`
		Delete EventDeleteCmd `cmd:"" help:"Delete a special event."`
	} `cmd:"" help:"Manage special events."`
	Time struct {
		Set  TimeSetCmd  `cmd:"" help:"Set the device clock."`
		Sync TimeSyncCmd `cmd:"" help:"Resynchronize the device clock with NTP."`
	} `cmd:"" help:"Manage the device clock."`
	WiFi     WiFiCmd     `cmd:"" name:"wifi" help:"Configure WiFi station credentials."`
	Password PasswordCmd `cmd:"" help:"Change the device admin password."`
	Login    LoginCmd    `cmd:"" help:"Store the device admin password in the OS keyring."`
	Logout   LogoutCmd   `cmd:"" help:"Remove the stored device admin password."`
	Backup   struct {
		Create  BackupCreateCmd  `cmd:"" help:"Download a device backup." default:"1"`
		List    BackupListCmd    `cmd:"" help:"List stored backups."`
		Restore BackupRestoreCmd `cmd:"" help:"Upload a stored backup to the device."`
	} `cmd:"" help:"Manage device backups."`
	Reset ResetCmd `cmd:"" help:"Erase every melody, schedule and event on the device."`
}

// Options returns the app options selected by the global flags.
func (r *Root) Options() app.Options {
	opts := app.Options{
		ConfigPath: r.Config,
		PrefsPath:  r.Prefs,
		Device:     r.Device,
		Debug:      r.Debug,
	}
	if r.Debug {
		opts.Console = os.Stderr
	}
	return opts
}

// Context is passed to every command's Run method.
type Context struct {
	Ctx     context.Context
	Options app.Options
	Out     io.Writer
	Prompt  Prompter
	Now     func() time.Time

	env *app.Env
}

// NewContext returns a Context writing to out. The environment is opened on
// first use.
func NewContext(ctx context.Context, opts app.Options, out io.Writer) *Context {
	return &Context{Ctx: ctx, Options: opts, Out: out, Prompt: HuhPrompter{}, Now: time.Now}
}

// WithEnv returns a Context over an already opened environment.
func WithEnv(ctx context.Context, env *app.Env, out io.Writer, prompt Prompter) *Context {
	return &Context{Ctx: ctx, Out: out, Prompt: prompt, Now: time.Now, env: env}
}

// Env opens the client stack, printing cache notifications to Out.
func (c *Context) Env() (*app.Env, error) {
	if c.env != nil {
		return c.env, nil
	}
	opts := c.Options
	opts.Notify = consoleSink{w: c.Out}
	env, err := app.Open(opts)
	if err != nil {
		return nil, err
	}
	c.env = env
	return env, nil
}

// Close releases the environment if one was opened.
func (c *Context) Close() error {
	if c.env == nil {
		return nil
	}
	err := c.env.Close()
	c.env = nil
	return err
}

func (c *Context) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.Out, format, args...)
}

// consoleSink prints notifications as single lines.
type consoleSink struct {
	w io.Writer
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#81b29a"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dbc074"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d"))
)

func (s consoleSink) Notify(level notify.Level, text string) {
	switch level {
	case notify.Success:
		text = okStyle.Render(text)
	case notify.Warning:
		text = warnStyle.Render(text)
	case notify.Error:
		text = errStyle.Render(text)
	}
	_, _ = fmt.Fprintln(s.w, text)
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var (
		val *device.ValidationError
		biz *device.BusinessError
		tr  *device.TransportError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &val):
		return ExitValidation
	case errors.As(err, &tr), errors.Is(err, device.ErrRateLimited):
		return ExitOffline
	case errors.As(err, &biz):
		return ExitRejected
	default:
		return ExitFailure
	}
}

// Message renders err for the terminal.
func Message(err error) string {
	return device.UserMessage(err)
}

// reportedError marks an error the cache has already printed through the
// console sink.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// Reported reports whether err was already shown to the operator.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#5f6b7a"))).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func clock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

func parseClock(value string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, &device.ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not HH:MM", value)}
	}
	return t.Hour(), t.Minute(), nil
}
