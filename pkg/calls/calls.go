package calls

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-apiclient/pkg/message"
	"github.com/samvad-hq/samvad-apiclient/pkg/uri"
)

// Package calls loads the registry of API calls (YAML/JSON) run by the dispatcher.

type Call struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Method         string            `json:"method" yaml:"method"`
	Path           string            `json:"path" yaml:"path"`
	Params         map[string]any    `json:"params" yaml:"params"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	ExpectStatus   int               `json:"expect_status" yaml:"expect_status"`
	Enabled        *bool             `json:"enabled" yaml:"enabled"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
}

type registry struct {
	Calls []Call `json:"calls" yaml:"calls"`
}

var (
	regMu                 sync.RWMutex
	currentReg            registry
	callsIdx              map[string]Call
	defaultRequestDelayMs = 0
)

// Calls returns a copy of the currently loaded calls registry.
func Calls() []Call {
	regMu.RLock()
	defer regMu.RUnlock()

	if len(currentReg.Calls) == 0 {
		return nil
	}

	out := make([]Call, len(currentReg.Calls))
	copy(out, currentReg.Calls)
	return out
}

// EnabledCalls returns the loaded calls that are not switched off, in file order.
func EnabledCalls() []Call {
	all := Calls()
	out := all[:0]
	for _, c := range all {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

// CallByID returns the call entry for the given id, if loaded.
func CallByID(id string) (Call, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Call{}, false
	}

	regMu.RLock()
	defer regMu.RUnlock()

	if callsIdx == nil {
		return Call{}, false
	}

	c, ok := callsIdx[id]
	return c, ok
}

// LoadCalls loads the calls registry from file.
func LoadCalls(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("calls file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open calls file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read calls file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return err
	}

	if len(reg.Calls) == 0 {
		return errors.New("calls file contains no calls entries")
	}

	idx := make(map[string]Call, len(reg.Calls))
	for i := range reg.Calls {
		c := sanitizeCall(reg.Calls[i])
		if err := validateCall(c); err != nil {
			return fmt.Errorf("call[%d]: %w", i, err)
		}
		if _, exists := idx[c.ID]; exists {
			return fmt.Errorf("duplicate call id %q", c.ID)
		}
		reg.Calls[i] = c
		idx[c.ID] = c
	}

	regMu.Lock()
	currentReg = reg
	callsIdx = idx
	regMu.Unlock()

	return nil
}

func parseRegistry(data []byte, ext string) (registry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registry{}, errors.New("calls file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registry, error) {
	var reg registry
	if err := fn(data, &reg); err != nil {
		return registry{}, fmt.Errorf("decode %s calls: %w", name, err)
	}
	return reg, nil
}

func sanitizeCall(c Call) Call {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	c.Path = strings.TrimSpace(c.Path)

	if c.Method == "" {
		c.Method = message.MethodGet
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Params == nil {
		c.Params = map[string]any{}
	}
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	if c.RequestDelayMs < 0 {
		c.RequestDelayMs = defaultRequestDelayMs
	}

	return c
}

func validateCall(c Call) error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if !message.IsKnownMethod(c.Method) {
		return fmt.Errorf("method %q is not supported for call %q", c.Method, c.ID)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required for call %q", c.ID)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path for call %q must start with /", c.ID)
	}
	if _, err := uri.Parse(c.Path); err != nil {
		return fmt.Errorf("path for call %q: %w", c.ID, err)
	}
	if c.ExpectStatus != 0 && !message.IsValidStatus(c.ExpectStatus) {
		return fmt.Errorf("expect_status %d is not a valid status for call %q", c.ExpectStatus, c.ID)
	}
	return nil
}

// IsEnabled reports whether the call should run. Calls are enabled unless switched off.
func (c Call) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Accepts reports whether status counts as success: the expected status when set,
// otherwise any 2xx.
func (c Call) Accepts(status int) bool {
	if c.ExpectStatus != 0 {
		return status == c.ExpectStatus
	}
	return status >= 200 && status < 300
}

// RequestDelay returns the pause taken before the call runs.
func (c Call) RequestDelay() time.Duration {
	if c.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// HeaderNames returns the call's extra header names sorted, so headers are applied
// in a stable order.
func (c Call) HeaderNames() []string {
	names := make([]string, 0, len(c.Headers))
	for name := range c.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
