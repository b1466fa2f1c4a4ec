package release

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/watchthelight/hginstall/internal/platform"
)

// manifestTimeout bounds evaluation of a manifest.
const manifestTimeout = 2 * time.Second

//go:embed manifests/hg.lua
var defaultManifest string

// ParseError reports an invalid release manifest.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// LoadOptions configures manifest loading.
type LoadOptions struct {
	// AllowInsecure accepts http:// URLs. Only tests set it.
	AllowInsecure bool
}

// Default loads the release table embedded in the binary.
func Default(ctx context.Context) (*Table, error) {
	return Parse(ctx, defaultManifest, LoadOptions{})
}

// LoadFile loads a release table from a Lua manifest on disk.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(ctx, string(data), opts)
}

// Parse evaluates a Lua manifest in a sandbox and builds a validated Table.
//
// The manifest must assign a global "release" table:
//
//	release = {
//	  name = "hg",
//	  url = "https://host/org/repo/releases/download/v{version}/{name}_{version}_{os}_{arch}.tar.gz",
//	  versions = {
//	    ["1.4.0"] = {
//	      linux_amd64 = "<sha256>",
//	      darwin_arm64 = { sha256 = "<sha256>", signature_url = "{url}.sig" },
//	    },
//	  },
//	}
//
// url, signature_url, bundle_url, identity and issuer may be set at the top
// level as templates and overridden per entry.
func Parse(ctx context.Context, code string, opts LoadOptions) (*Table, error) {
	L := newSandboxedVM()
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, manifestTimeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoString(code); err != nil {
		return nil, &ParseError{
			Message: "Lua error in release manifest",
			Detail:  err.Error(),
		}
	}

	return extractTable(L, opts)
}

// entryTemplate holds the templated fields shared by the top level and entries.
type entryTemplate struct {
	url          string
	signatureURL string
	bundleURL    string
	identity     string
	issuer       string
}

func (t entryTemplate) override(table *lua.LTable) (entryTemplate, error) {
	out := t
	for key, dst := range map[string]*string{
		"url":           &out.url,
		"signature_url": &out.signatureURL,
		"bundle_url":    &out.bundleURL,
		"identity":      &out.identity,
		"issuer":        &out.issuer,
	} {
		v := table.RawGetString(key)
		switch v.Type() {
		case lua.LTNil:
		case lua.LTString:
			*dst = v.String()
		default:
			return out, &ParseError{
				Message: "invalid field type",
				Detail:  fmt.Sprintf("%s must be a string, got %s", key, v.Type()),
			}
		}
	}
	return out, nil
}

// extractTable reads the global "release" table.
func extractTable(L *lua.LState, opts LoadOptions) (*Table, error) {
	releaseVal := L.GetGlobal("release")
	if releaseVal.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'release' table",
			Detail:  fmt.Sprintf("expected table, got %s", releaseVal.Type()),
		}
	}
	root := releaseVal.(*lua.LTable)

	nameVal := root.RawGetString("name")
	if nameVal.Type() != lua.LTString || strings.TrimSpace(nameVal.String()) == "" {
		return nil, &ParseError{Message: "release.name is required"}
	}
	name := strings.TrimSpace(nameVal.String())

	base, err := entryTemplate{}.override(root)
	if err != nil {
		return nil, err
	}

	versionsVal := root.RawGetString("versions")
	if versionsVal.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'release.versions' table",
			Detail:  fmt.Sprintf("expected table, got %s", versionsVal.Type()),
		}
	}

	table := &Table{
		name:     name,
		versions: make(map[string]map[platform.Platform]Descriptor),
	}

	var firstErr error
	versionsVal.(*lua.LTable).ForEach(func(key, value lua.LValue) {
		if firstErr != nil {
			return
		}
		entries, err := extractVersion(name, key, value, base, opts)
		if err != nil {
			firstErr = err
			return
		}
		table.versions[key.String()] = entries
	})
	if firstErr != nil {
		return nil, firstErr
	}

	if len(table.versions) == 0 {
		return nil, &ParseError{Message: "release table has no versions"}
	}

	if err := table.checkAdditive(); err != nil {
		return nil, err
	}

	return table, nil
}

func extractVersion(name string, key, value lua.LValue, base entryTemplate, opts LoadOptions) (map[platform.Platform]Descriptor, error) {
	if key.Type() != lua.LTString {
		return nil, &ParseError{
			Message: "invalid version key",
			Detail:  fmt.Sprintf("version keys must be strings like \"1.4.0\", got %s %s", key.Type(), key.String()),
		}
	}
	version := key.String()
	if !ValidVersion(version) {
		return nil, &ParseError{
			Message: "invalid version key",
			Detail:  fmt.Sprintf("%q is not a full major.minor.patch version without a leading v", version),
		}
	}
	if value.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "invalid version entry",
			Detail:  fmt.Sprintf("version %s: expected table, got %s", version, value.Type()),
		}
	}

	entries := make(map[platform.Platform]Descriptor)
	var firstErr error
	value.(*lua.LTable).ForEach(func(k, v lua.LValue) {
		if firstErr != nil {
			return
		}
		d, err := extractEntry(name, version, k, v, base, opts)
		if err != nil {
			firstErr = err
			return
		}
		if _, dup := entries[d.Platform]; dup {
			firstErr = &ParseError{
				Message: "duplicate platform entry",
				Detail:  fmt.Sprintf("version %s lists %s more than once", version, d.Platform.Key()),
			}
			return
		}
		entries[d.Platform] = *d
	})
	if firstErr != nil {
		return nil, firstErr
	}

	if len(entries) == 0 {
		return nil, &ParseError{
			Message: "invalid version entry",
			Detail:  fmt.Sprintf("version %s has no platforms", version),
		}
	}
	return entries, nil
}

func extractEntry(name, version string, key, value lua.LValue, base entryTemplate, opts LoadOptions) (*Descriptor, error) {
	p, err := platform.Parse(key.String())
	if key.Type() != lua.LTString || err != nil {
		return nil, &ParseError{
			Message: "invalid platform key",
			Detail:  fmt.Sprintf("version %s: %q is not an os_arch pair", version, key.String()),
		}
	}

	tmpl := base
	var checksum string
	switch value.Type() {
	case lua.LTString:
		checksum = value.String()
	case lua.LTTable:
		t := value.(*lua.LTable)
		if tmpl, err = base.override(t); err != nil {
			return nil, err
		}
		if v := t.RawGetString("sha256"); v.Type() == lua.LTString {
			checksum = v.String()
		}
	default:
		return nil, &ParseError{
			Message: "invalid platform entry",
			Detail:  fmt.Sprintf("%s %s: expected checksum string or table, got %s", version, p.Key(), value.Type()),
		}
	}

	normalized, err := NormalizeChecksum(checksum)
	if err != nil {
		return nil, &ParseError{
			Message: "invalid checksum",
			Detail:  fmt.Sprintf("%s %s: %v", version, p.Key(), err),
		}
	}

	vars := map[string]string{
		"{name}":    name,
		"{version}": version,
		"{os}":      p.OS,
		"{arch}":    p.Arch,
	}

	d := &Descriptor{
		Name:     name,
		Version:  version,
		Platform: p,
		Checksum: normalized,
		Identity: expand(tmpl.identity, vars),
		Issuer:   expand(tmpl.issuer, vars),
	}

	if d.URL, err = expandURL("url", tmpl.url, vars, opts); err != nil {
		return nil, wrapEntryErr(version, p, err)
	}
	if d.URL == "" {
		return nil, &ParseError{
			Message: "missing url",
			Detail:  fmt.Sprintf("%s %s: no url template at top level or in entry", version, p.Key()),
		}
	}

	vars["{url}"] = d.URL
	if d.SignatureURL, err = expandURL("signature_url", tmpl.signatureURL, vars, opts); err != nil {
		return nil, wrapEntryErr(version, p, err)
	}
	if d.BundleURL, err = expandURL("bundle_url", tmpl.bundleURL, vars, opts); err != nil {
		return nil, wrapEntryErr(version, p, err)
	}
	if d.BundleURL != "" && (d.Identity == "" || d.Issuer == "") {
		return nil, &ParseError{
			Message: "bundle_url needs identity and issuer",
			Detail:  fmt.Sprintf("%s %s: a sigstore bundle is only checked against a pinned certificate identity", version, p.Key()),
		}
	}

	return d, nil
}

func wrapEntryErr(version string, p platform.Platform, err error) error {
	if pe, ok := err.(*ParseError); ok {
		pe.Detail = fmt.Sprintf("%s %s: %s", version, p.Key(), pe.Detail)
		return pe
	}
	return err
}

func expand(tmpl string, vars map[string]string) string {
	for k, v := range vars {
		tmpl = strings.ReplaceAll(tmpl, k, v)
	}
	return tmpl
}

// expandURL substitutes vars into tmpl and checks the result is an absolute
// https URL. An empty template yields an empty URL.
func expandURL(field, tmpl string, vars map[string]string, opts LoadOptions) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	// {url} first so that the artifact URL's own braces, if any, are not re-expanded
	if u, ok := vars["{url}"]; ok {
		tmpl = strings.ReplaceAll(tmpl, "{url}", u)
	}
	raw := expand(tmpl, vars)
	if strings.ContainsAny(raw, "{}") {
		return "", &ParseError{
			Message: "unknown template variable",
			Detail:  fmt.Sprintf("%s %q (known: {name} {version} {os} {arch} {url})", field, tmpl),
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", &ParseError{
			Message: "invalid URL",
			Detail:  fmt.Sprintf("%s %q is not an absolute URL", field, raw),
		}
	}
	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && opts.AllowInsecure:
	default:
		return "", &ParseError{
			Message: "insecure URL",
			Detail:  fmt.Sprintf("%s %q must use https", field, raw),
		}
	}
	return raw, nil
}
