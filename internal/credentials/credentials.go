// Package credentials turns operator-supplied session cookie text into
// validated cookie records that a browser session can apply.
package credentials

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPath is applied when a cookie does not carry its own path.
const DefaultPath = "/"

// Credential is a single session cookie. Name and Value are never empty.
type Credential struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite string
	// Expires is a Unix timestamp in seconds; zero means a session cookie.
	Expires float64
}

// Normalize detects the format of raw and returns the cookies it contains.
// Supported formats, tried in order: a JSON array or object, "k=v; k=v",
// one "k=v" per line, "k=v,k=v", and a single "k=v". Malformed input yields
// an empty slice; callers treat zero credentials as fatal.
func Normalize(raw, rootDomain string, logger *zap.Logger) []Credential {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []Credential{}
	}

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		creds, err := parseStructured(trimmed, rootDomain, logger)
		if err != nil {
			logger.Warn("Cookie parsing error.", zap.Error(err))
			return []Credential{}
		}
		return creds
	}

	creds := make([]Credential, 0)
	for _, segment := range splitSegments(raw) {
		segment = strings.TrimSpace(segment)
		if segment == "" || !strings.Contains(segment, "=") {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			logger.Debug("Skipping cookie segment with empty name or value.", zap.String("name", key))
			continue
		}
		creds = append(creds, Credential{Name: key, Value: value, Domain: rootDomain, Path: DefaultPath})
	}
	return creds
}

// splitSegments picks the delimiter for flat "k=v" input.
func splitSegments(raw string) []string {
	switch {
	case strings.Contains(raw, ";"):
		return strings.Split(raw, ";")
	case strings.ContainsAny(raw, "\r\n"):
		normalized := strings.ReplaceAll(raw, "\r\n", "\n")
		normalized = strings.ReplaceAll(normalized, "\r", "\n")
		return strings.Split(normalized, "\n")
	case strings.Contains(raw, ",") && strings.Contains(raw, "="):
		return strings.Split(raw, ",")
	default:
		return []string{raw}
	}
}

// parseStructured decodes JSON input and coerces each element into a
// Credential on its own. Elements are browser cookie exports (name, value,
// domain, path, secure, httpOnly, sameSite, expirationDate or expires);
// unknown keys are ignored. An element that is not an object or lacks a
// usable name or value is dropped without affecting the others.
func parseStructured(input, rootDomain string, logger *zap.Logger) ([]Credential, error) {
	var elems []jsoniter.RawMessage
	if strings.HasPrefix(input, "{") {
		var single jsoniter.RawMessage
		if err := json.Unmarshal([]byte(input), &single); err != nil {
			return nil, fmt.Errorf("invalid cookie object: %w", err)
		}
		elems = []jsoniter.RawMessage{single}
	} else if err := json.Unmarshal([]byte(input), &elems); err != nil {
		return nil, fmt.Errorf("invalid cookie array: %w", err)
	}

	creds := make([]Credential, 0, len(elems))
	for i, elem := range elems {
		c, err := coerceCookie(json.Get(elem), rootDomain)
		if err != nil {
			logger.Warn("Dropping structured cookie.", zap.Int("position", i), zap.Error(err))
			continue
		}
		creds = append(creds, c)
	}
	return creds, nil
}

func coerceCookie(rec jsoniter.Any, rootDomain string) (Credential, error) {
	if rec.ValueType() != jsoniter.ObjectValue {
		return Credential{}, fmt.Errorf("expected an object, got %s", valueTypeName(rec.ValueType()))
	}
	name, value := scalarString(rec.Get("name")), scalarString(rec.Get("value"))
	if name == "" || value == "" {
		return Credential{}, fmt.Errorf("missing name or value")
	}
	c := Credential{
		Name:     name,
		Value:    value,
		Domain:   scalarString(rec.Get("domain")),
		Path:     scalarString(rec.Get("path")),
		Secure:   flag(rec.Get("secure")),
		HTTPOnly: flag(rec.Get("httpOnly")),
		SameSite: scalarString(rec.Get("sameSite")),
	}
	if c.Domain == "" {
		c.Domain = rootDomain
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if exp, ok := timestamp(rec.Get("expirationDate")); ok {
		c.Expires = exp
	} else if exp, ok := timestamp(rec.Get("expires")); ok && exp > 0 {
		c.Expires = exp
	}
	return c, nil
}

// scalarString reads a string or number; any other JSON type reads as "".
func scalarString(a jsoniter.Any) string {
	switch a.ValueType() {
	case jsoniter.StringValue, jsoniter.NumberValue:
		return strings.TrimSpace(a.ToString())
	}
	return ""
}

func flag(a jsoniter.Any) bool {
	switch a.ValueType() {
	case jsoniter.BoolValue:
		return a.ToBool()
	case jsoniter.StringValue:
		return strings.EqualFold(strings.TrimSpace(a.ToString()), "true")
	}
	return false
}

// timestamp reads a Unix time in seconds from a number or a numeric string.
func timestamp(a jsoniter.Any) (float64, bool) {
	switch a.ValueType() {
	case jsoniter.NumberValue:
		return a.ToFloat64(), true
	case jsoniter.StringValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(a.ToString()), 64)
		return f, err == nil
	}
	return 0, false
}

func valueTypeName(t jsoniter.ValueType) string {
	switch t {
	case jsoniter.ArrayValue:
		return "array"
	case jsoniter.StringValue:
		return "string"
	case jsoniter.NumberValue:
		return "number"
	case jsoniter.BoolValue:
		return "bool"
	case jsoniter.NilValue:
		return "null"
	}
	return "invalid value"
}

// Load returns the raw credential text, reading it from a file when source
// is prefixed with "@" (e.g. "@~/cookies.json"). Anything else is returned
// unchanged.
func Load(source string) (string, error) {
	if !strings.HasPrefix(source, "@") {
		return source, nil
	}
	return ReadFile(strings.TrimPrefix(source, "@"))
}

// ReadFile reads credential text from path, expanding a leading "~".
func ReadFile(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	return string(data), nil
}

// Names returns the cookie names in order, for logging without exposing values.
func Names(creds []Credential) []string {
	names := make([]string, len(creds))
	for i, c := range creds {
		names[i] = c.Name
	}
	return names
}
