package connectrt

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// optionsValidator validates the ServiceOptions/ClientOptions/HandlerOption
// struct tags below. Grounded on the teacher's rpc/service.go
// globalValidator: a single package-level *validator.Validate reused across
// calls, since validator.New() builds internal struct caches that are
// expensive to redo per call and the instance is safe for concurrent use.
var optionsValidator = validator.New()

// ServiceOptions configures a Registry at construction time (spec §3 ADD).
// Package follows protobuf package naming (lowercase, dot-separated
// identifiers); MaxReceiveBytes, when set, must be a positive byte count.
type ServiceOptions struct {
	// Package is a protobuf package name, e.g. "greet.v1". It is validated
	// but not stored: methods are registered under the full names passed to
	// RegisterUnary and its siblings.
	Package string `validate:"required,lowercase"`
	// MaxReceiveBytes bounds request body size registry-wide. Zero means
	// unbounded.
	MaxReceiveBytes int64 `validate:"omitempty,min=1"`
	// EnableReflection is accepted but not read: the Registry serves no
	// reflection RPC. Registry.Services() lists the registered service
	// names for introspection.
	EnableReflection bool
}

// NewRegistryWithOptions validates opts and returns a Registry built from
// it, or an error describing the first invalid field. Use NewRegistry
// directly when no validated configuration is needed.
func NewRegistryWithOptions(opts ServiceOptions) (*Registry, error) {
	if err := optionsValidator.Struct(opts); err != nil {
		return nil, fmt.Errorf("connectrt: invalid ServiceOptions: %w", err)
	}
	r := NewRegistry()
	r.MaxReceiveBytes = opts.MaxReceiveBytes
	return r, nil
}

// ClientOptions configures a Client at construction time (spec §3 ADD).
type ClientOptions struct {
	// BaseURL is the upstream origin, e.g. "https://api.example.com".
	BaseURL string `validate:"required,url"`
	// Subtype selects the outgoing codec; empty defaults to codec.Proto.
	Subtype string `validate:"omitempty,oneof=proto json"`
	// SendCompression names the outgoing compressor; empty means identity.
	SendCompression string `validate:"omitempty,oneof=gzip identity"`
	// Timeout bounds each call's HTTP round trip; zero uses NewClient's
	// default.
	Timeout time.Duration `validate:"omitempty,min=0"`
}

// NewClientWithOptions validates opts and returns a Client built from it.
// httpClient may be nil, matching NewClient's own default.
func NewClientWithOptions(opts ClientOptions, httpClient *http.Client) (*Client, error) {
	if err := optionsValidator.Struct(opts); err != nil {
		return nil, fmt.Errorf("connectrt: invalid ClientOptions: %w", err)
	}
	if httpClient == nil && opts.Timeout > 0 {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	c := NewClient(opts.BaseURL, httpClient)
	if opts.Subtype != "" {
		c.Subtype = opts.Subtype
	}
	if opts.SendCompression != "" {
		c.SendCompression = opts.SendCompression
	}
	return c, nil
}

// HandlerOption overrides per-endpoint settings after registration (spec §3
// ADD). FullName must name an endpoint
// already registered on the Registry.
type HandlerOption struct {
	FullName        string `validate:"required"`
	MaxReceiveBytes int64  `validate:"omitempty,min=1"`
}

// ApplyHandlerOption validates opt and applies its MaxReceiveBytes override
// to the endpoint named by opt.FullName.
func (r *Registry) ApplyHandlerOption(opt HandlerOption) error {
	if err := optionsValidator.Struct(opt); err != nil {
		return fmt.Errorf("connectrt: invalid HandlerOption: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.endpoints[opt.FullName]
	if !ok {
		return fmt.Errorf("connectrt: no endpoint registered for %q", opt.FullName)
	}
	e.MaxReceiveBytes = opt.MaxReceiveBytes
	return nil
}
