package app

import "path/filepath"

// File names inside a job directory.
const (
	PageFile     = "page.html"
	CSVFile      = "highest_grossing_films.csv"
	ResultFile   = "result.json"
	MetadataFile = "metadata.txt"
	ReportFile   = "report.pdf"
)

// jobPaths resolves the fixed file locations of one job directory.
type jobPaths struct {
	dir string
}

func (p jobPaths) page() string     { return filepath.Join(p.dir, PageFile) }
func (p jobPaths) csv() string      { return filepath.Join(p.dir, CSVFile) }
func (p jobPaths) result() string   { return filepath.Join(p.dir, ResultFile) }
func (p jobPaths) metadata() string { return filepath.Join(p.dir, MetadataFile) }
func (p jobPaths) report() string   { return filepath.Join(p.dir, ReportFile) }
