package attendance

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const insightSentinel = "N/A"

const topStudentCount = 5

// Analyze joins a stored batch with its full record set and computes the
// dashboard view: gender and defaulter breakdowns plus ranked insights.
func (svc *Service) Analyze(ctx context.Context, batchID string) (AnalysisReport, error) {
	batch, err := svc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return AnalysisReport{}, errors.Wrap(err, "fetching batch")
	}
	records, err := svc.repo.GetBatchRecords(ctx, batchID)
	if err != nil {
		return AnalysisReport{}, errors.Wrap(err, "fetching batch records")
	}

	report := AnalysisReport{
		Batch:   batch,
		Records: records,
		Insights: Insights{
			AverageAttendance: batch.AverageAttendance,
		},
	}

	for _, rec := range records {
		// Unrecognized gender strings land in Other rather than being dropped.
		switch strings.ToLower(rec.Gender) {
		case "male":
			report.GenderStats.Male++
			if rec.IsDefaulter {
				report.DefaulterStats.Male++
			}
		case "female":
			report.GenderStats.Female++
			if rec.IsDefaulter {
				report.DefaulterStats.Female++
			}
		default:
			report.GenderStats.Other++
			if rec.IsDefaulter {
				report.DefaulterStats.Other++
			}
		}
		if rec.IsDefaulter {
			report.DefaulterStats.Total++
		}
	}

	ranked := make([]Record, len(records))
	copy(ranked, records)
	// stable: ties keep input order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AttendancePercentage > ranked[j].AttendancePercentage
	})

	if len(ranked) == 0 {
		report.Insights.HighestAttendance = StudentInsight{Name: insightSentinel}
		report.Insights.LowestAttendance = StudentInsight{Name: insightSentinel}
		report.Insights.TopStudents = []StudentInsight{}
		return report, nil
	}

	report.Insights.HighestAttendance = StudentInsight{
		Name:       ranked[0].Name,
		Percentage: ranked[0].AttendancePercentage,
	}
	report.Insights.LowestAttendance = StudentInsight{
		Name:       ranked[len(ranked)-1].Name,
		Percentage: ranked[len(ranked)-1].AttendancePercentage,
	}

	top := topStudentCount
	if len(ranked) < top {
		top = len(ranked)
	}
	report.Insights.TopStudents = make([]StudentInsight, 0, top)
	for _, rec := range ranked[:top] {
		report.Insights.TopStudents = append(report.Insights.TopStudents, StudentInsight{
			Name:       rec.Name,
			Percentage: rec.AttendancePercentage,
		})
	}
	return report, nil
}
