// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/l3montree-dev/dtrack-reporter/internal/analysis"
	"github.com/l3montree-dev/dtrack-reporter/internal/report"
	"github.com/l3montree-dev/dtrack-reporter/internal/review"
	"github.com/l3montree-dev/dtrack-reporter/pkg/dtrack"
	"github.com/pkg/errors"
)

type Poller interface {
	Upload(ctx context.Context, req analysis.Request) (dtrack.UploadToken, error)
	PollUntilComplete(ctx context.Context, token dtrack.UploadToken, timeout time.Duration) error
	FetchFindings(ctx context.Context, req analysis.Request) ([]dtrack.Finding, error)
}

type Commenter interface {
	ReplaceOrCreate(ctx context.Context, number int, author, marker string, direction review.Direction, body string) (review.Comment, error)
}

// Progress is shown while waiting for the server side analysis.
// *spinner.Spinner satisfies it.
type Progress interface {
	Start()
	Stop()
}

type Options struct {
	Request analysis.Request
	Timeout time.Duration
	// pull or merge request number. 0 skips posting the report.
	Number        int
	CommentAuthor string
	Direction     review.Direction
	// empty disables the severity gate
	FailOnSeverity string
	// if set, the markdown report is written to this file as well
	OutputPath string
}

type Result struct {
	Findings []dtrack.Finding
	Report   string
	// 0 if no comment was posted
	CommentID int64
}

type SeverityThresholdError struct {
	Threshold report.Severity
}

func (e *SeverityThresholdError) Error() string {
	return fmt.Sprintf("found vulnerabilities with severity %s or higher", e.Threshold)
}

type Orchestrator struct {
	poller    Poller
	commenter Commenter
	progress  Progress
}

// NewOrchestrator wires the stages. commenter may be nil if no report should
// be posted, progress may be nil.
func NewOrchestrator(poller Poller, commenter Commenter, progress Progress) *Orchestrator {
	return &Orchestrator{poller: poller, commenter: commenter, progress: progress}
}

// Run executes the whole analysis. A violated severity gate is reported as
// *SeverityThresholdError after the report has been posted, the returned
// result is complete in that case.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Result, error) {
	var threshold *report.Severity
	if opts.FailOnSeverity != "" {
		s, err := report.ParseSeverity(opts.FailOnSeverity)
		if err != nil {
			return Result{}, err
		}
		threshold = &s
	}

	token, err := o.poller.Upload(ctx, opts.Request)
	if err != nil {
		return Result{}, err
	}

	if err := o.waitForAnalysis(ctx, token, opts.Timeout); err != nil {
		return Result{}, err
	}

	findings, err := o.poller.FetchFindings(ctx, opts.Request)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Findings: findings,
		Report:   report.Markdown(findings),
	}

	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, []byte(result.Report), 0o644); err != nil {
			return result, errors.Wrap(err, "could not write report")
		}
		slog.Info("wrote report", "path", opts.OutputPath)
	}

	if opts.Number > 0 && o.commenter != nil {
		comment, err := o.commenter.ReplaceOrCreate(ctx, opts.Number, opts.CommentAuthor, report.Marker, opts.Direction, result.Report)
		if err != nil {
			return result, err
		}
		result.CommentID = comment.ID
	} else {
		slog.Debug("no pull request number given, skipping comment")
	}

	if threshold != nil && report.ExceedsThreshold(findings, *threshold) {
		return result, &SeverityThresholdError{Threshold: *threshold}
	}
	return result, nil
}

func (o *Orchestrator) waitForAnalysis(ctx context.Context, token dtrack.UploadToken, timeout time.Duration) error {
	if o.progress != nil {
		o.progress.Start()
		defer o.progress.Stop()
	}
	return o.poller.PollUntilComplete(ctx, token, timeout)
}
