package cli

import (
	"fmt"
	"io"
	"slices"

	derrors "github.com/randalmurphal/dossier/internal/errors"
)

// PrintError writes err to w. Domain errors use their user-facing form
// followed by any field errors.
func PrintError(w io.Writer, err error) {
	de := derrors.AsDossierError(err)
	if de == nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintln(w, de.UserMessage())
	if len(de.Fields) > 0 {
		fmt.Fprintln(w)
		keys := make([]string, 0, len(de.Fields))
		for k := range de.Fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, de.Fields[k])
		}
	}
	if verbose {
		fmt.Fprintf(w, "\nCode: %s\n", de.Code)
		if de.Cause != nil {
			fmt.Fprintf(w, "Cause: %v\n", de.Cause)
		}
	}
}
