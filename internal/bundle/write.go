package bundle

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/zclconf/go-cty/cty"
)

// Bytes renders the bundle: a header, a bundled block listing every
// resource, one external stub per external URL, every resource in emission
// order and a bootstrap trailer naming the roots.
//
// Bootstrap blocks of the bundled resources are dropped so the trailer is
// the only one. "./" require names are replaced by the locators they resolved
// to, since inside the bundle they would resolve against the bundle itself.
func (r *Result) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Generated by modload bundle from %s.\n", strings.Join(r.Entries, ", "))

	head := hclwrite.NewEmptyFile()
	bundled := head.Body().AppendNewBlock("bundled", nil)
	bundled.Body().SetAttributeValue("locators", stringList(r.Locators()))
	buf.WriteString("\n")
	buf.Write(head.Bytes())

	if len(r.Externals) > 0 {
		stubs := hclwrite.NewEmptyFile()
		for _, url := range r.Externals {
			stubs.Body().AppendNewBlock("external", []string{url})
		}
		buf.WriteString("\n")
		buf.Write(stubs.Bytes())
	}

	for _, n := range r.Order {
		f, ok := r.files[n.ID]
		if !ok {
			return nil, fmt.Errorf("no source for %s", n.ID)
		}
		src, err := rewrite(f, r.relative[n.ID])
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "\n# %s\n", n.ID)
		buf.Write(bytes.TrimSpace(src))
		buf.WriteString("\n")
	}

	trailer := hclwrite.NewEmptyFile()
	block := trailer.Body().AppendNewBlock("bootstrap", nil)
	block.Body().SetAttributeValue("modules", stringList(r.Roots))
	buf.WriteString("\n")
	buf.Write(trailer.Bytes())

	return hclwrite.Format(buf.Bytes()), nil
}

// WriteTo implements io.WriterTo.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	b, err := r.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// rewrite drops the bootstrap blocks of f and renames the require labels
// found in relative.
func rewrite(f *manifest.File, relative map[string]string) ([]byte, error) {
	if !f.HasBootstrap && len(relative) == 0 {
		return f.Source, nil
	}
	file, diags := hclwrite.ParseConfig(f.Source, f.Locator, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to rewrite %s: %w", f.Locator, diags)
	}
	body := file.Body()
	for _, b := range body.Blocks() {
		switch b.Type() {
		case "bootstrap":
			body.RemoveBlock(b)
		case "require":
			labels := b.Labels()
			if loc, ok := relative[labels[0]]; ok {
				b.SetLabels([]string{loc})
			}
		}
	}
	return file.Bytes(), nil
}

func stringList(in []string) cty.Value {
	if len(in) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(in))
	for i, s := range in {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
