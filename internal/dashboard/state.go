package dashboard

import (
	"maps"
	"time"

	"github.com/jaxxstorm/dnsdash/internal/model"
)

// DefaultErrorMessage is shown when a failure carries no text of its own.
const DefaultErrorMessage = "An error occurred"

// Action names a user-triggered workflow that tracks its own busy/error state.
type Action string

const (
	ActionToggleDNSSEC Action = "toggle-dnssec"
	ActionStartAttack  Action = "start-attack"
	ActionStopAttack   Action = "stop-attack"
	ActionClearCache   Action = "clear-cache"
	ActionCapture      Action = "capture"
)

// Field identifies one independently refreshed part of the snapshot.
type Field string

const (
	FieldResolver   Field = "resolver"
	FieldResolution Field = "resolution"
	FieldAttack     Field = "attack"
	FieldDig        Field = "dig"
	FieldCapture    Field = "capture"
	FieldLogs       Field = "logs"
	FieldPlot       Field = "plot"
)

type TransientError struct {
	Message    string    `json:"message"`
	RaisedAt   time.Time `json:"raised_at"`
	Deadline   time.Time `json:"deadline"`
	Generation uint64    `json:"generation"`
}

type ActionStatus struct {
	Busy      bool      `json:"busy"`
	InFlight  int       `json:"in_flight"`
	Err       string    `json:"error,omitempty"`
	Completed time.Time `json:"completed,omitempty"`

	errGen uint64
}

// State is a copy of everything the controller has observed. Each field holds
// the last response applied for it; failed calls leave it untouched.
type State struct {
	DNSSECEnabled bool                    `json:"dnssec_enabled"`
	Resolver      model.ResolverInfo      `json:"resolver"`
	Resolution    model.Resolution        `json:"resolution"`
	Attack        model.AttackStatus      `json:"attack"`
	AttackRunning bool                    `json:"attack_running"`
	Dig           string                  `json:"dig,omitempty"`
	Capture       string                  `json:"capture,omitempty"`
	Logs          string                  `json:"logs,omitempty"`
	Plot          model.PlotData          `json:"plot,omitempty"`
	Tab           model.Tab               `json:"tab"`
	WebsiteURL    string                  `json:"website_url"`
	Banner        *TransientError         `json:"banner,omitempty"`
	Actions       map[Action]ActionStatus `json:"actions"`
	Seq           map[Field]uint64        `json:"seq"`
	Stale         uint64                  `json:"stale"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// Mode is the resolver mode implied by the current DNSSEC flag.
func (s State) Mode() model.Mode {
	return model.ModeFor(s.DNSSECEnabled)
}

// Busy reports whether any action is still waiting on the backend.
func (s State) Busy() bool {
	for _, status := range s.Actions {
		if status.Busy {
			return true
		}
	}
	return false
}

func (s State) Action(action Action) ActionStatus {
	return s.Actions[action]
}

func (s State) clone() State {
	out := s
	out.Actions = maps.Clone(s.Actions)
	out.Seq = maps.Clone(s.Seq)
	out.Plot = maps.Clone(s.Plot)
	if s.Banner != nil {
		banner := *s.Banner
		out.Banner = &banner
	}
	return out
}
