package systemd

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/unit"
)

// Unit is the static description of the supervised dashboard process.
type Unit struct {
	Name             string
	Description      string
	User             string
	After            []string
	WorkingDirectory string
	StartDelay       time.Duration
	ExecStart        []string
	Restart          string
	RestartDelay     time.Duration
	WantedBy         string
}

type StreamlitParams struct {
	Name          string
	User          string
	AppDir        string
	VenvDir       string
	EntryPoint    string
	ListenAddress string
	Port          int
	EnableCORS    bool
	StartDelay    time.Duration
	RestartDelay  time.Duration
}

// StreamlitUnit builds the unit that serves the dashboard on all interfaces.
func StreamlitUnit(p StreamlitParams) Unit {
	return Unit{
		Name:             p.Name,
		Description:      "Student Performance Analytics Dashboard (Streamlit)",
		User:             p.User,
		After:            []string{"network.target"},
		WorkingDirectory: p.AppDir,
		StartDelay:       p.StartDelay,
		ExecStart: []string{
			p.VenvDir + "/bin/streamlit", "run", p.EntryPoint,
			"--server.port", fmt.Sprintf("%d", p.Port),
			"--server.address", p.ListenAddress,
			"--server.enableCORS", fmt.Sprintf("%t", p.EnableCORS),
		},
		Restart:      "always",
		RestartDelay: p.RestartDelay,
		WantedBy:     "multi-user.target",
	}
}

func (u Unit) FileName() string {
	if strings.HasSuffix(u.Name, ".service") {
		return u.Name
	}
	return u.Name + ".service"
}

func (u Unit) Validate() error {
	if u.Name == "" || strings.ContainsAny(u.Name, "/ \t\n") {
		return fmt.Errorf("invalid unit name '%s'", u.Name)
	}
	if len(u.ExecStart) == 0 {
		return fmt.Errorf("unit %s has no start command", u.Name)
	}
	switch u.Restart {
	case "no", "always", "on-success", "on-failure", "on-abnormal", "on-abort", "on-watchdog":
	default:
		return fmt.Errorf("unit %s has invalid restart policy '%s'", u.Name, u.Restart)
	}
	if u.StartDelay < 0 || u.RestartDelay < 0 {
		return fmt.Errorf("unit %s has a negative delay", u.Name)
	}
	return nil
}

// Options lists the unit's settings in file order.
func (u Unit) Options() []*unit.UnitOption {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", u.Description),
		unit.NewUnitOption("Unit", "After", strings.Join(u.After, " ")),
		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "User", u.User),
		unit.NewUnitOption("Service", "WorkingDirectory", u.WorkingDirectory),
	}
	if u.StartDelay > 0 {
		opts = append(opts, unit.NewUnitOption("Service", "ExecStartPre", fmt.Sprintf("/bin/sleep %d", seconds(u.StartDelay))))
	}
	return append(opts,
		unit.NewUnitOption("Service", "ExecStart", strings.Join(u.ExecStart, " ")),
		unit.NewUnitOption("Service", "Restart", u.Restart),
		unit.NewUnitOption("Service", "RestartSec", fmt.Sprintf("%d", seconds(u.RestartDelay))),
		unit.NewUnitOption("Install", "WantedBy", u.WantedBy),
	)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// Render produces the unit file contents.
func (u Unit) Render() ([]byte, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(unit.Serialize(u.Options()))
	if err != nil {
		return nil, fmt.Errorf("error rendering unit %s: %w", u.Name, err)
	}
	return content, nil
}

// Matches reports whether the unit file content defines exactly this unit's
// settings. Formatting differences such as comments or blank lines are
// ignored.
func (u Unit) Matches(content []byte) bool {
	existing, err := unit.DeserializeOptions(bytes.NewReader(content))
	if err != nil {
		return false
	}
	return unit.AllMatch(existing, u.Options())
}
