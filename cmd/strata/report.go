package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/aretw0/strata/pkg/store"
)

type failureView struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error"`
}

type reportView struct {
	Kind     string            `json:"kind"`
	Current  string            `json:"current"`
	DryRun   bool              `json:"dry_run"`
	Upgraded []string          `json:"upgraded"`
	UpToDate []string          `json:"up_to_date"`
	Failed   []failureView     `json:"failed"`
	Moved    map[string]string `json:"moved,omitempty"`
}

func viewReport(r *store.Report) reportView {
	v := reportView{
		Kind:     r.Kind.Name(),
		Current:  r.Current.String(),
		DryRun:   r.DryRun,
		Upgraded: r.Upgraded,
		UpToDate: r.UpToDate,
		Moved:    r.Moved,
	}
	for _, f := range r.Failed {
		fv := failureView{ID: f.ID, Error: f.Err.Error()}
		if !f.Version.IsZero() {
			fv.Version = f.Version.String()
		}
		v.Failed = append(v.Failed, fv)
	}
	return v
}

// writeReports prints reports and returns the number of failed records.
func writeReports(w io.Writer, reports []*store.Report, asJSON bool, pending string) (int, error) {
	failed := 0
	for _, r := range reports {
		failed += len(r.Failed)
	}

	if asJSON {
		views := make([]reportView, 0, len(reports))
		for _, r := range reports {
			views = append(views, viewReport(r))
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return failed, encoder.Encode(views)
	}

	for _, r := range reports {
		fmt.Fprintf(w, "%s: %d %s, %d current, %d failed (current version %s)\n",
			r.Kind.Name(), len(r.Upgraded), pending, len(r.UpToDate), len(r.Failed), r.Current)
		for _, id := range slices.Sorted(maps.Keys(r.Moved)) {
			fmt.Fprintf(w, "  %s -> %s\n", id, r.Moved[id])
		}
		for _, f := range r.Failed {
			fmt.Fprintf(w, "  %s: %v\n", f.ID, f.Err)
		}
	}
	return failed, nil
}
