package console

import "strings"

// ServingURLs are the addresses printed when the dev server is ready.
type ServingURLs struct {
	Local   string
	Network string
}

// Serving prints the dev-server address block.
func (c *Console) Serving(urls ServingURLs) {
	var b strings.Builder
	b.WriteString("\n  App running at:\n")
	b.WriteString("  - Local:   " + c.accent.Render(urls.Local) + "\n")
	if urls.Network != "" {
		b.WriteString("  - Network: " + c.accent.Render(urls.Network) + "\n")
	} else {
		b.WriteString("  - Network: " + c.dim.Render("unavailable") + "\n")
	}
	b.WriteString("\n")
	c.write(false, b.String())
}

// ServingNote prints the note shown after the first successful compile.
func (c *Console) ServingNote(production bool, buildCommand string) {
	if production {
		c.write(false, "  App is served in production mode.\n  Note this is for preview or E2E testing only.\n\n")
		return
	}
	c.write(false, "  Note that the development build is not optimized.\n"+
		"  To create a production build, run "+c.accent.Render(buildCommand)+".\n\n")
}
