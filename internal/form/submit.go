package form

import (
	"context"
	"maps"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/notions-storefront/internal/notify"
)

// DefaultDelay is the simulated network latency of a submission.
const DefaultDelay = 1500 * time.Millisecond

// DefaultStateTTL is how long an unrendered form state is kept.
const DefaultStateTTL = 10 * time.Minute

// MsgFixErrors is the aggregate notification for a failed validation.
const MsgFixErrors = "Please fix the errors in the form"

// MsgInlineSubscribed is shown by the inline newsletter form.
const MsgInlineSubscribed = "Thank you for subscribing! Check your inbox for confirmation."

var (
	// ErrUnknownForm is returned for a form name that is not registered.
	ErrUnknownForm = errors.New("unknown form")
	// ErrBusy is returned while a submission of the same form is in flight.
	ErrBusy = errors.New("submission in progress")
)

// ValidationError maps field names to their first failing rule.
type ValidationError struct {
	Form   string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "form " + e.Form + ": invalid fields " + strings.Join(slices.Sorted(maps.Keys(e.Fields)), ", ")
}

// Field returns the annotation for name, or "".
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// ClearError drops the annotation for name.
func (e *ValidationError) ClearError(name string) {
	delete(e.Fields, name)
}

// blocking reports whether a required field of form is annotated. Malformed
// optional fields are annotated but never hold a submission back.
func (e *ValidationError) blocking(form Form) bool {
	for _, f := range form.Fields {
		if f.Required && e.Fields[f.Name] != "" {
			return true
		}
	}
	return false
}

// Result is the outcome of a successful submission.
type Result struct {
	// Message is shown inline above the form.
	Message string
	// Values are the reset field values.
	Values url.Values
}

// State is what a form page renders for one visitor: the last submitted
// values, the field annotations or the success message.
type State struct {
	Values  url.Values
	Errors  map[string]string
	Success string
}

// Config configures a Handler.
type Config struct {
	// Delay is the simulated latency. Zero uses DefaultDelay, negative
	// disables it.
	Delay time.Duration
	// StateTTL bounds how long the outcome of a submission waits for the form
	// page to render it. Zero uses DefaultStateTTL.
	StateTTL time.Duration
}

// Handler validates and "submits" forms. No data leaves the process.
type Handler struct {
	forms map[string]Form
	sink  notify.Sink
	delay time.Duration
	ttl   time.Duration
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu     sync.Mutex
	busy   map[string]bool
	states map[string]pendingState
}

type pendingState struct {
	State
	expires time.Time
}

// NewHandler creates a Handler for forms, emitting notifications to sink.
func NewHandler(forms []Form, sink notify.Sink, cfg Config) *Handler {
	h := &Handler{
		forms:  make(map[string]Form, len(forms)),
		sink:   sink,
		delay:  cfg.Delay,
		ttl:    cfg.StateTTL,
		sleep:  sleepContext,
		now:    time.Now,
		busy:   make(map[string]bool),
		states: make(map[string]pendingState),
	}
	if h.delay == 0 {
		h.delay = DefaultDelay
	}
	if h.ttl <= 0 {
		h.ttl = DefaultStateTTL
	}
	for _, f := range forms {
		h.forms[f.Name] = f
	}
	return h
}

// Lookup returns the form called name.
func (h *Handler) Lookup(name string) (Form, bool) {
	f, ok := h.forms[name]
	return f, ok
}

// Validate checks every field of form against values.
func (h *Handler) Validate(form Form, values url.Values) *ValidationError {
	var verr *ValidationError
	for _, f := range form.Fields {
		msg := ValidateField(f, values.Get(f.Name))
		if msg == "" {
			continue
		}
		if verr == nil {
			verr = &ValidationError{Form: form.Name, Fields: make(map[string]string)}
		}
		verr.Fields[f.Name] = msg
	}
	return verr
}

// Submit validates values and simulates sending them. A failing required
// field returns *ValidationError and an error notification. On success, Submit
// waits for the configured delay, during which Busy reports true, then
// returns the success message and emits a success notification.
func (h *Handler) Submit(ctx context.Context, visitorID, name string, values url.Values) (*Result, error) {
	form, ok := h.forms[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownForm, "%q", name)
	}
	lg := zctx.From(ctx).With(zap.String("form", name))

	if verr := h.Validate(form, values); verr != nil && verr.blocking(form) {
		h.setState(visitorID, name, State{Values: cloneValues(values), Errors: verr.Fields})
		h.sink.Notify(ctx, visitorID, notify.Error(MsgFixErrors))
		lg.Debug("Form rejected", zap.Strings("fields", slices.Sorted(maps.Keys(verr.Fields))))
		return nil, verr
	}

	key := stateKey(visitorID, name)
	if !h.acquire(key) {
		return nil, ErrBusy
	}
	defer h.release(key)

	if h.delay > 0 {
		if err := h.sleep(ctx, h.delay); err != nil {
			return nil, errors.Wrap(err, "wait")
		}
	}

	msg, toast := messages(form, values)
	res := &Result{Message: msg, Values: url.Values{}}
	h.setState(visitorID, name, State{Values: url.Values{}, Success: msg})
	h.sink.Notify(ctx, visitorID, notify.Success(toast))
	lg.Info("Form submitted")
	return res, nil
}

// SubscribeInline handles the footer newsletter form: a single email field,
// no simulated delay.
func (h *Handler) SubscribeInline(ctx context.Context, visitorID, email string) (*Result, error) {
	f := Field{Name: "email", Kind: KindEmail, Required: true}
	if msg := ValidateField(f, email); msg != "" {
		// The inline form only ever reports a shape error.
		msg = MsgInvalidEmail
		h.sink.Notify(ctx, visitorID, notify.Error(msg))
		return nil, &ValidationError{Form: "newsletter-inline", Fields: map[string]string{"email": msg}}
	}
	h.sink.Notify(ctx, visitorID, notify.Success(MsgInlineSubscribed))
	zctx.From(ctx).Info("Inline newsletter subscription")
	return &Result{Message: MsgInlineSubscribed, Values: url.Values{}}, nil
}

// Busy reports whether visitorID has a submission of form name in flight.
func (h *Handler) Busy(visitorID, name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busy[stateKey(visitorID, name)]
}

// State returns and consumes the pending render state of a form. A form is
// shown blank when there is none.
func (h *Handler) State(visitorID, name string) State {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := stateKey(visitorID, name)
	st, ok := h.states[key]
	if !ok {
		return State{Values: url.Values{}}
	}
	delete(h.states, key)
	if h.now().After(st.expires) {
		return State{Values: url.Values{}}
	}
	return st.State
}

// ClearError removes the annotation for field once the visitor edits it.
func (h *Handler) ClearError(visitorID, name, field string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if st, ok := h.states[stateKey(visitorID, name)]; ok {
		delete(st.Errors, field)
	}
}

func (h *Handler) acquire(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy[key] {
		return false
	}
	h.busy[key] = true
	return true
}

func (h *Handler) release(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.busy, key)
}

// setState records st for the next render and drops states nobody came back
// for.
func (h *Handler) setState(visitorID, name string, st State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for key, p := range h.states {
		if now.After(p.expires) {
			delete(h.states, key)
		}
	}
	h.states[stateKey(visitorID, name)] = pendingState{State: st, expires: now.Add(h.ttl)}
}

// messages returns the inline message and the toast for a successful
// submission.
func messages(form Form, values url.Values) (msg, toast string) {
	switch form.Type {
	case TypeContact:
		return "Thank you for your message! We'll get back to you within 24-48 hours.",
			"Message sent successfully!"
	case TypeNewsletter:
		return "Thank you for subscribing! Check your inbox for a confirmation email.",
			"Successfully subscribed!"
	case TypeRegister:
		className := strings.TrimSpace(values.Get(ClassNameField))
		if className == "" {
			className = "the class"
		}
		return "You've been registered for " + className + "! Check your email for confirmation and payment details.",
			"Registration successful!"
	default:
		return "Form submitted successfully!", "Submitted successfully!"
	}
}

func stateKey(visitorID, name string) string {
	return visitorID + "/" + name
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = slices.Clone(vs)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
