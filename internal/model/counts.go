package model

// CaseCount is one row of the plain by-case aggregation.
type CaseCount struct {
    CaseID any   `json:"case_id"`
    Count  int64 `json:"count"`
}

// CaseDeveloperCount is one row of the by-case aggregation restricted to a
// date range, split by developer and approval state.
type CaseDeveloperCount struct {
    CaseID        any     `json:"case_id"`
    DeveloperName *string `json:"developer_name"`
    Count         int64   `json:"count"`
    Approved      int64   `json:"approved"`
    Rejected      int64   `json:"rejected"`
    Undecided     int64   `json:"undefined"`
}

// ApprovalCounts totals tests by approval state.  The JSON name of the
// undecided bucket is "undefined" for compatibility with existing dashboards.
type ApprovalCounts struct {
    Approved              int64  `json:"approved"`
    Rejected              int64  `json:"rejected"`
    Undecided             int64  `json:"undefined"`
    TopApprovedDevelopers string `json:"top_approved_developers"`
    TopRejectedDevelopers string `json:"top_rejected_developers"`
}

// DeveloperCount is a developer name with the number of tests attributed to it.
type DeveloperCount struct {
    Name  string
    Count int64
}

// UserDayCount is one (calendar date, username) bucket of the by-user
// aggregation.
type UserDayCount struct {
    Date     string  `json:"date"`
    Username *string `json:"username"`
    Count    int64   `json:"count"`
}
