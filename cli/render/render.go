// Package render writes command output for the outpost CLI.
//
// Format selection:
//   - a TTY defaults to table, anything else to json
//   - --format always overrides the default
//
// --no-color affects table output only. TUI views carry their own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/outpost/cli/reader"
	"github.com/pithecene-io/outpost/cli/tui"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format name. Empty input returns "" so the caller can
// pick a default.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatYAML, "":
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer writes values in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer builds a renderer from the --format and --no-color flags.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTTY(os.Stdout) {
			format = FormatTable
		}
	}
	return &Renderer{format: format, noColor: c.Bool("no-color"), out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer writing to out.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the selected format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI runs an interactive view. Only read-only views support it.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) renderTable(data any) error {
	// Asset listings render as rows rather than a nested struct.
	if resp, ok := data.(*reader.InspectAssetsResponse); ok {
		if _, err := fmt.Fprintf(r.out, "asset_root: %s\n", resp.AssetRoot); err != nil {
			return err
		}
		data = reader.Rows(resp.Assets)
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice {
		return r.renderSliceTable(v)
	}
	return r.renderStructTable(v)
}

func (r *Renderer) renderSliceTable(v reflect.Value) error {
	if v.Len() == 0 {
		_, err := fmt.Fprintln(r.out, "(no results)")
		return err
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	headers := r.headers(v.Index(0))
	fmt.Fprintln(w, strings.ToUpper(strings.Join(headers, "\t")))
	for i := range v.Len() {
		fmt.Fprintln(w, strings.Join(r.rowValues(v.Index(i), headers), "\t"))
	}
	return w.Flush()
}

func (r *Renderer) renderStructTable(v reflect.Value) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	v = indirect(v)

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range v.NumField() {
			name := fieldName(t.Field(i))
			fmt.Fprintf(w, "%s:\t%s\n", name, r.colorize(name, r.formatValue(v.Field(i))))
		}
	case reflect.Map:
		for _, key := range sortedKeys(v) {
			fmt.Fprintf(w, "%s:\t%s\n", key, r.formatValue(v.MapIndex(reflect.ValueOf(key))))
		}
	default:
		if v.IsValid() {
			fmt.Fprintf(w, "%v\n", v.Interface())
		}
	}
	return w.Flush()
}

func (r *Renderer) headers(v reflect.Value) []string {
	v = indirect(v)
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		headers := make([]string, 0, t.NumField())
		for i := range t.NumField() {
			headers = append(headers, fieldName(t.Field(i)))
		}
		return headers
	case reflect.Map:
		return sortedKeys(v)
	}
	return nil
}

func (r *Renderer) rowValues(v reflect.Value, headers []string) []string {
	v = indirect(v)
	values := make([]string, 0, len(headers))
	switch v.Kind() {
	case reflect.Struct:
		for i := range v.NumField() {
			values = append(values, r.colorize(headers[i], r.formatValue(v.Field(i))))
		}
	case reflect.Map:
		for _, h := range headers {
			values = append(values, r.formatValue(v.MapIndex(reflect.ValueOf(h))))
		}
	}
	return values
}

// colorize styles acknowledgement states in table output.
func (r *Renderer) colorize(field, value string) string {
	if r.noColor || field != "state" {
		return value
	}
	return tui.StateStyle(value).Render(value)
}

func (r *Renderer) formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func sortedKeys(v reflect.Value) []string {
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, fmt.Sprintf("%v", k.Interface()))
	}
	sort.Strings(keys)
	return keys
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
