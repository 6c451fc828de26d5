package report

import (
	"tokentrace/internal/ui/report/formats"
)

type SnapshotData = formats.SnapshotData
type SnapshotGenerator = formats.SnapshotGenerator
type TSVGenerator = formats.TSVGenerator
type MarkdownGenerator = formats.MarkdownGenerator
type MarkdownReportData = formats.MarkdownReportData
type MarkdownReportOptions = formats.MarkdownReportOptions

func NewSnapshotGenerator() *SnapshotGenerator {
	return formats.NewSnapshotGenerator()
}

func NewTSVGenerator() *TSVGenerator {
	return formats.NewTSVGenerator()
}

func NewMarkdownGenerator() *MarkdownGenerator {
	return formats.NewMarkdownGenerator()
}
