package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guyskk/weirb-hrpc/app"
)

// Boot introspection tables, aligned with tabwriter.

func printConfigTable(a *app.App) {
	values := a.Snapshot().Map()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tKIND\tVALUE\tDESCRIPTION")
	for _, field := range a.Schema().Fields() {
		value, ok := values[field.Name]
		rendered := "<unset>"
		if ok {
			rendered = fmt.Sprintf("%v", value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", field.Name, field.Kind, rendered, field.Description)
	}
	_ = w.Flush()
}

func printPluginTable(a *app.App) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLUGIN\tPROVIDES\tREQUIRES\tSCOPE\tDECORATOR")
	for _, p := range a.Plugins().Plugins() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Name,
			joinOrDash(p.Provides),
			joinOrDash(p.Requires),
			yesNo(p.Scope != nil),
			yesNo(p.Decorator != nil),
		)
	}
	_ = w.Flush()
}

func printServiceTable(a *app.App) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tMETHOD\tPATH")
	for _, route := range a.Router().Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", route.Service, route.Method, route.Path)
	}
	_ = w.Flush()
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
