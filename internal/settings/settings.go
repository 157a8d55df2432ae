// Package settings loads the closed, enumerated settings key set of
// spec.md §3/§6 into a typed snapshot, read once per top-level operation
// per spec.md §9 ("Global mutable state... reified as a Settings service
// loaded once per top-level operation; never accessed via ambient
// globals"). Generalized from bodgit-rom/synchronizer/synchronizer.go's
// Workers/DryRun/Checksum/Logger functional-options pattern to this fixed
// key set, backed by github.com/oxyromon/oxyromon/internal/catalog's raw
// key/value settings table instead of constructor arguments.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/elect"
	"github.com/oxyromon/oxyromon/internal/sorter"
)

// Key names are the closed enumerated set persisted in the settings table.
const (
	KeyRomDirectory     = "ROM_DIRECTORY"
	KeyTmpDirectory     = "TMP_DIRECTORY"
	KeyRegionsOne       = "REGIONS_ONE"
	KeyRegionsOneStrict = "REGIONS_ONE_STRICT"
	KeyPreferParents    = "PREFER_PARENTS"
	KeyPreferRegions    = "PREFER_REGIONS"
	KeyPreferVersions   = "PREFER_VERSIONS"
	KeyPreferFlags      = "PREFER_FLAGS"
	KeyLanguages        = "LANGUAGES"
	KeyGroupSubsystems  = "GROUP_SUBSYSTEMS"
	KeySubfolders       = "SUBFOLDERS"
	KeyOneG1RSubfolders = "ONE_G1R_SUBFOLDERS"
	KeyChdParents       = "CHD_PARENTS"
	KeyWorkers          = "WORKERS"
)

// Keys enumerates every valid settings key, in the order `config -l`
// reports them; `config -s`/`-u`/`-a`/`-r` reject any key outside this set.
var Keys = []string{
	KeyRomDirectory, KeyTmpDirectory,
	KeyRegionsOne, KeyRegionsOneStrict,
	KeyPreferParents, KeyPreferRegions, KeyPreferVersions, KeyPreferFlags,
	KeyLanguages,
	KeyGroupSubsystems, KeySubfolders, KeyOneG1RSubfolders,
	KeyChdParents,
	KeyWorkers,
}

// listKeys are the settings whose value is `|`-separated, per spec.md §6
// ("list-valued settings are `|`-separated in storage").
var listKeys = map[string]bool{
	KeyRegionsOne:  true,
	KeyPreferFlags: true,
	KeyLanguages:   true,
}

// ErrUnknownKey is returned by Validate for any key outside Keys.
type ErrUnknownKey string

func (e ErrUnknownKey) Error() string { return fmt.Sprintf("settings: unknown key %q", string(e)) }

// Validate rejects any key outside the closed set.
func Validate(key string) error {
	for _, k := range Keys {
		if k == key {
			return nil
		}
	}
	return ErrUnknownKey(key)
}

// IsList reports whether key stores a `|`-separated list.
func IsList(key string) bool { return listKeys[key] }

func joinList(v []string) string { return strings.Join(v, "|") }

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, "|")
}

// Settings is the typed snapshot of every key in Keys, plus the defaults
// applied when a key has never been set.
type Settings struct {
	RomDirectory     string
	TmpDirectory     string
	RegionsOne       []string
	RegionsOneStrict bool
	PreferParents    bool
	PreferRegions    elect.RegionPreference
	PreferVersions   elect.VersionPreference
	PreferFlags      []string
	Languages        []string
	GroupSubsystems  bool
	Subfolders       sorter.SubfolderScheme
	OneG1RSubfolders bool
	ChdParents       bool
	Workers          int
}

// Option overrides one field of a just-Loaded Settings, letting a CLI flag
// win over the persisted value for a single invocation without writing it
// back.
type Option func(*Settings)

func WithRegionsOne(v []string) Option               { return func(s *Settings) { s.RegionsOne = v } }
func WithSubfolders(v sorter.SubfolderScheme) Option { return func(s *Settings) { s.Subfolders = v } }
func WithOneG1RSubfolders(v bool) Option             { return func(s *Settings) { s.OneG1RSubfolders = v } }
func WithWorkers(n int) Option                       { return func(s *Settings) { s.Workers = n } }

// Load reads every key in Keys from store, applies the package defaults to
// anything unset, then applies opts in order.
func Load(ctx context.Context, store *catalog.Store, opts ...Option) (*Settings, error) {
	raw, err := store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Workers:          4,
		RegionsOneStrict: true,
		PreferRegions:    elect.PreferRegionsNone,
		PreferVersions:   elect.PreferVersionsNone,
		Subfolders:       sorter.SubfolderNone,
	}

	s.RomDirectory = raw[KeyRomDirectory]
	s.TmpDirectory = raw[KeyTmpDirectory]
	s.RegionsOne = splitList(raw[KeyRegionsOne])
	s.RegionsOneStrict = parseBool(raw[KeyRegionsOneStrict], s.RegionsOneStrict)
	s.PreferParents = parseBool(raw[KeyPreferParents], false)
	if v, ok := raw[KeyPreferRegions]; ok && v != "" {
		s.PreferRegions = elect.RegionPreference(v)
	}
	if v, ok := raw[KeyPreferVersions]; ok && v != "" {
		s.PreferVersions = elect.VersionPreference(v)
	}
	s.PreferFlags = splitList(raw[KeyPreferFlags])
	s.Languages = splitList(raw[KeyLanguages])
	s.GroupSubsystems = parseBool(raw[KeyGroupSubsystems], false)
	if v, ok := raw[KeySubfolders]; ok && v != "" {
		s.Subfolders = sorter.SubfolderScheme(v)
	}
	s.OneG1RSubfolders = parseBool(raw[KeyOneG1RSubfolders], false)
	s.ChdParents = parseBool(raw[KeyChdParents], false)
	if n, err := strconv.Atoi(raw[KeyWorkers]); err == nil && n > 0 {
		s.Workers = n
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ElectorSettings projects the fields internal/elect.Elect reads.
func (s *Settings) ElectorSettings() elect.Settings {
	return elect.Settings{
		RegionsOne:       s.RegionsOne,
		RegionsOneStrict: s.RegionsOneStrict,
		PreferParents:    s.PreferParents,
		PreferRegions:    s.PreferRegions,
		PreferVersions:   s.PreferVersions,
		PreferFlags:      s.PreferFlags,
		Languages:        s.Languages,
	}
}

// SorterConfig projects the fields internal/sorter.BuildPlan reads.
func (s *Settings) SorterConfig() sorter.Config {
	return sorter.Config{
		GroupSubsystems:  s.GroupSubsystems,
		Subfolders:       s.Subfolders,
		OneG1RSubfolders: s.OneG1RSubfolders,
	}
}

// Set validates key, then persists value (joining list-typed values with
// `|`), per `config -s KEY VALUE`.
func Set(ctx context.Context, store *catalog.Store, key, value string) error {
	if err := Validate(key); err != nil {
		return err
	}
	return store.SetSetting(ctx, key, value)
}

// Append adds value to the `|`-separated list stored at key (a no-op if
// already present), per `config -a KEY VALUE`.
func Append(ctx context.Context, store *catalog.Store, key, value string) error {
	if err := Validate(key); err != nil {
		return err
	}
	if !IsList(key) {
		return fmt.Errorf("settings: %s is not list-valued", key)
	}

	current, _, err := store.GetSetting(ctx, key)
	if err != nil {
		return err
	}

	items := splitList(current)
	for _, v := range items {
		if v == value {
			return nil
		}
	}
	items = append(items, value)

	return store.SetSetting(ctx, key, joinList(items))
}

// Remove drops value from the `|`-separated list stored at key, per
// `config -r KEY VALUE`.
func Remove(ctx context.Context, store *catalog.Store, key, value string) error {
	if err := Validate(key); err != nil {
		return err
	}
	if !IsList(key) {
		return fmt.Errorf("settings: %s is not list-valued", key)
	}

	current, ok, err := store.GetSetting(ctx, key)
	if err != nil || !ok {
		return err
	}

	items := splitList(current)
	out := items[:0]
	for _, v := range items {
		if v != value {
			out = append(out, v)
		}
	}

	return store.SetSetting(ctx, key, joinList(out))
}
