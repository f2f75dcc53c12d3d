// Package config loads process-wide mesh configuration: referrals,
// advertised metadata, busyness weights/offsets, and per-task latencies.
// See spec.md §3 and §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	// rejectSentinel is the configured string meaning "never accept / never
	// contributes a weight" for a given module.function entry.
	rejectSentinel = "reject"

	defaultPingLatencyMS   = 1500
	defaultSyncLatencyMS   = 3000
	defaultAssignLatencyMS = 20
	defaultHandleLatencyMS = 10
)

// WeightEntry is either a concrete integer or the "reject" sentinel.
type WeightEntry struct {
	Reject bool
	Value  int
}

// WeightTable is module -> function -> WeightEntry.
type WeightTable map[string]map[string]WeightEntry

// Lookup returns the entry for module.function, or (zero, false) if absent.
func (t WeightTable) Lookup(module, function string) (WeightEntry, bool) {
	fns, ok := t[module]
	if !ok {
		return WeightEntry{}, false
	}
	e, ok := fns[function]
	return e, ok
}

// LookupOffset adapts WeightTable to internal/requests.Offsets.
func (t WeightTable) LookupOffset(module, function string) (value int64, reject bool, found bool) {
	e, ok := t.Lookup(module, function)
	if !ok {
		return 0, false, false
	}
	return int64(e.Value), e.Reject, true
}

// LookupWeight adapts WeightTable to internal/requests.Weights.
func (t WeightTable) LookupWeight(module, function string) (value int64, reject bool, found bool) {
	return t.LookupOffset(module, function)
}

// Config is the normalized, process-wide configuration.
type Config struct {
	Referrals []string
	Metadata  map[string]any

	BusynessWeights WeightTable
	BusynessOffsets WeightTable

	PingLatencyMS   int
	SyncLatencyMS   int
	AssignLatencyMS int
	HandleLatencyMS int
}

// PingLatency, SyncLatency, AssignLatency, and HandleLatency convert the
// configured millisecond values into time.Duration for the ticker-driven
// tasks in internal/tasks.
func (c Config) PingLatency() time.Duration   { return time.Duration(c.PingLatencyMS) * time.Millisecond }
func (c Config) SyncLatency() time.Duration   { return time.Duration(c.SyncLatencyMS) * time.Millisecond }
func (c Config) AssignLatency() time.Duration { return time.Duration(c.AssignLatencyMS) * time.Millisecond }
func (c Config) HandleLatency() time.Duration { return time.Duration(c.HandleLatencyMS) * time.Millisecond }

// rawFile is the YAML-decodable shape on disk.
type rawFile struct {
	Referrals       string         `yaml:"referrals"`
	Metadata        map[string]any `yaml:"metadata"`
	BusynessWeights map[string]any `yaml:"busyness_weights"`
	BusynessOffsets map[string]any `yaml:"busyness_offsets"`
	Ping            *latencyBlock  `yaml:"ping"`
	Sync            *latencyBlock  `yaml:"sync"`
	AssignRequests  *latencyBlock  `yaml:"assign_requests"`
	HandleRequests  *latencyBlock  `yaml:"handle_requests"`
}

type latencyBlock struct {
	Latency int `yaml:"latency"`
}

// Default returns a Config with every default applied and no referrals,
// metadata, weights, or offsets configured.
func Default() Config {
	return Config{
		Metadata:        map[string]any{},
		BusynessWeights: WeightTable{},
		BusynessOffsets: WeightTable{},
		PingLatencyMS:   defaultPingLatencyMS,
		SyncLatencyMS:   defaultSyncLatencyMS,
		AssignLatencyMS: defaultAssignLatencyMS,
		HandleLatencyMS: defaultHandleLatencyMS,
	}
}

// Load reads path (if non-empty and present) and applies PLEASE_* env
// overrides on top. A missing path is not an error — it just means every
// key falls back to its default.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var raw rawFile
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			if err := applyRaw(&cfg, raw); err != nil {
				return Config{}, fmt.Errorf("apply config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// no file: defaults stand
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyRaw(cfg *Config, raw rawFile) error {
	if raw.Referrals != "" {
		cfg.Referrals = splitReferrals(raw.Referrals)
	}
	if raw.Metadata != nil {
		cfg.Metadata = raw.Metadata
	}
	if raw.BusynessWeights != nil {
		wt, err := decodeWeightTable(raw.BusynessWeights)
		if err != nil {
			return fmt.Errorf("busyness_weights: %w", err)
		}
		cfg.BusynessWeights = wt
	}
	if raw.BusynessOffsets != nil {
		wt, err := decodeWeightTable(raw.BusynessOffsets)
		if err != nil {
			return fmt.Errorf("busyness_offsets: %w", err)
		}
		cfg.BusynessOffsets = wt
	}
	if raw.Ping != nil && raw.Ping.Latency > 0 {
		cfg.PingLatencyMS = raw.Ping.Latency
	}
	if raw.Sync != nil && raw.Sync.Latency > 0 {
		cfg.SyncLatencyMS = raw.Sync.Latency
	}
	if raw.AssignRequests != nil && raw.AssignRequests.Latency > 0 {
		cfg.AssignLatencyMS = raw.AssignRequests.Latency
	}
	if raw.HandleRequests != nil && raw.HandleRequests.Latency > 0 {
		cfg.HandleLatencyMS = raw.HandleRequests.Latency
	}
	return nil
}

// decodeWeightTable turns a YAML-decoded module -> function -> (int|"reject")
// map into a typed WeightTable. Each entry is either the "reject" sentinel
// string or a value that mapstructure.WeakDecode can turn into an int.
func decodeWeightTable(raw map[string]any) (WeightTable, error) {
	out := make(WeightTable, len(raw))
	for module, v := range raw {
		fns, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("module %q: expected a map of functions, got %T", module, v)
		}
		entries := make(map[string]WeightEntry, len(fns))
		for function, raw := range fns {
			entry, err := decodeWeightEntry(raw)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", module, function, err)
			}
			entries[function] = entry
		}
		out[module] = entries
	}
	return out, nil
}

func decodeWeightEntry(raw any) (WeightEntry, error) {
	switch v := raw.(type) {
	case string:
		if strings.EqualFold(strings.TrimSpace(v), rejectSentinel) {
			return WeightEntry{Reject: true}, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return WeightEntry{}, fmt.Errorf("value %q is neither an integer nor %q", v, rejectSentinel)
		}
		return WeightEntry{Value: n}, nil
	default:
		var n int
		if err := mapstructure.WeakDecode(raw, &n); err != nil {
			return WeightEntry{}, fmt.Errorf("value %v is neither an integer nor %q", raw, rejectSentinel)
		}
		return WeightEntry{Value: n}, nil
	}
}

func splitReferrals(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PLEASE_REFERRALS")); v != "" {
		cfg.Referrals = splitReferrals(v)
	}
	if v, ok := envInt("PLEASE_PING_LATENCY_MS"); ok {
		cfg.PingLatencyMS = v
	}
	if v, ok := envInt("PLEASE_SYNC_LATENCY_MS"); ok {
		cfg.SyncLatencyMS = v
	}
	if v, ok := envInt("PLEASE_ASSIGN_LATENCY_MS"); ok {
		cfg.AssignLatencyMS = v
	}
	if v, ok := envInt("PLEASE_HANDLE_LATENCY_MS"); ok {
		cfg.HandleLatencyMS = v
	}
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
