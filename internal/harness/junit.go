package harness

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/pkg/errors"
)

// JUnit returns the report with one test suite per kind and mode, and one test case per case.
func (r *Report) JUnit() junit.Testsuites {
	suites := junit.Testsuites{
		Name: "proxgrad",
		Time: formatSeconds(r.Duration.Seconds()),
	}
	for i, g := range r.groups() {
		suite := junit.Testsuite{
			Name: fmt.Sprintf("%s/%s", g.kind, g.mode),
			ID:   i,
		}
		for _, result := range g.results {
			tc := junit.Testcase{
				Name:      result.Case.String(),
				Classname: suite.Name,
				Time:      formatSeconds(result.Duration.Seconds()),
			}
			if !result.Passed() {
				tc.Failure = &junit.Result{
					Message: fmt.Sprintf("%d of %d compared elements differ beyond tolerance", len(result.Mismatches), result.Compared),
					Type:    "mismatch",
					Data:    result.Err().Error(),
				}
				suite.Failures++
			}
			suite.Tests++
			suite.Testcases = append(suite.Testcases, tc)
		}
		suites.Tests += suite.Tests
		suites.Failures += suite.Failures
		suites.Suites = append(suites.Suites, suite)
	}
	return suites
}

// WriteJUnit writes the report to w as JUnit XML.
func (r *Report) WriteJUnit(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.WithStack(err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	suites := r.JUnit()
	if err := enc.Encode(&suites); err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
