package form

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"card-validator/pkg/models"
)

var validate = validator.New()

// Rules holds the validation rules attached to a field
type Rules struct {
	Required bool
}

// Manager keeps the state of one card form, including the field the backend
// last rejected.
type Manager struct {
	mu      sync.Mutex
	rules   map[string]Rules
	values  models.FormValues
	errors  models.ValidationErrors
	touched map[string]bool
	failed  models.WrongInput
}

// New creates an empty form with no registered fields
func New() *Manager {
	return &Manager{
		rules:   make(map[string]Rules),
		errors:  make(models.ValidationErrors),
		touched: make(map[string]bool),
	}
}

// NewCardForm creates a form with every card field registered as required
func NewCardForm() *Manager {
	m := New()
	for _, field := range models.Fields {
		m.Register(field, Rules{Required: true})
	}
	return m
}

// Register associates field with rules. Only registered fields hold values.
func (m *Manager) Register(field string, rules Rules) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[field] = rules
	m.errors = Validate(m.values, m.rules)
}

// Set records the value of a registered field and reports whether it was accepted
func (m *Manager) Set(field, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[field]; !ok {
		return false
	}
	m.values = m.values.With(field, value)
	m.touched[field] = true
	m.errors = Validate(m.values, m.rules)
	return true
}

// SetAll replaces the values of every registered field
func (m *Manager) SetAll(values models.FormValues) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for field := range m.rules {
		m.values = m.values.With(field, values.Get(field))
		m.touched[field] = true
	}
	m.errors = Validate(m.values, m.rules)
}

// Trigger runs a validation pass over every registered field, so violations
// are exposed even for fields the user never changed.
func (m *Manager) Trigger() models.ValidationErrors {
	m.mu.Lock()
	for field := range m.rules {
		m.touched[field] = true
	}
	m.errors = Validate(m.values, m.rules)
	m.mu.Unlock()

	return m.Errors()
}

// Snapshot runs a validation pass and returns the values it was run against.
// Both come from the same locked state, so a concurrent Set can't slip in
// between the check and the read.
func (m *Manager) Snapshot() (models.FormValues, models.ValidationErrors) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for field := range m.rules {
		m.touched[field] = true
	}
	m.errors = Validate(m.values, m.rules)

	errs := make(models.ValidationErrors, len(m.errors))
	for field, violated := range m.errors {
		errs[field] = violated
	}
	return m.registeredValues(), errs
}

// GetValues returns a snapshot of the registered fields' values
func (m *Manager) GetValues() models.FormValues {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.registeredValues()
}

func (m *Manager) registeredValues() models.FormValues {
	var out models.FormValues
	for field := range m.rules {
		out = out.With(field, m.values.Get(field))
	}
	return out
}

// Errors returns the required-rule violations of fields that have been
// changed or validated
func (m *Manager) Errors() models.ValidationErrors {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(models.ValidationErrors, len(m.errors))
	for field, violated := range m.errors {
		out[field] = violated && m.touched[field]
	}
	return out
}

// Invalid reports whether field should render in its error state
func (m *Manager) Invalid(field string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errors[field] && m.touched[field] {
		return true
	}
	wrong, ok := models.WrongInputFor(field)
	return ok && m.failed != "" && wrong == m.failed
}

// MarkFailed records the field the backend rejected. An empty value clears it.
func (m *Manager) MarkFailed(wrong models.WrongInput) {
	m.mu.Lock()
	m.failed = wrong
	m.mu.Unlock()
}

// ClearFailed removes the backend rejection marker
func (m *Manager) ClearFailed() {
	m.MarkFailed("")
}

// FailedInput returns the field the backend last rejected, if any
func (m *Manager) FailedInput() (models.WrongInput, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.failed, m.failed != ""
}

// Reset empties every value and marker, keeping the registered rules
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = models.FormValues{}
	m.failed = ""
	m.touched = make(map[string]bool)
	m.errors = Validate(m.values, m.rules)
}

// Validate evaluates rules against values. A field without a required rule
// is never reported.
func Validate(values models.FormValues, rules map[string]Rules) models.ValidationErrors {
	out := make(models.ValidationErrors, len(rules))
	for field, rule := range rules {
		if !rule.Required {
			out[field] = false
			continue
		}
		out[field] = validate.Var(values.Get(field), "required") != nil
	}
	return out
}
