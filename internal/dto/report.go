package dto

// ReportQuery captures the report endpoint parameters. Dates use the
// YYYY-MM-DD calendar form; DepartmentID narrows the scope when present.
type ReportQuery struct {
	FromDate     string  `form:"from_date" validate:"required"`
	ToDate       string  `form:"to_date" validate:"required"`
	DepartmentID *string `form:"department_id"`
	Format       string  `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ReportExportResponse returns the signed download handle for a rendered
// report file.
type ReportExportResponse struct {
	Token     string `json:"token"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	ExpiresAt string `json:"expires_at"`
	RowCount  int    `json:"row_count"`
}
