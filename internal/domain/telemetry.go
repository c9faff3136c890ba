package domain

// SeriesPoint — одна выборка живой метрики. Порядок в серии — порядок
// прихода, а не обязательно порядок ts.
type SeriesPoint struct {
	TS    string  `json:"ts"`
	Value float64 `json:"value"`
}

// DashboardSummary — сводка главного экрана. Частичные апдейты из потока
// накатываются shallow-merge'ем поверх полного снапшота.
type DashboardSummary struct {
	ProjectName      string  `json:"projectName"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	CameraOnline     int     `json:"cameraOnline"`
	CameraTotal      int     `json:"cameraTotal"`
	RingToday        int     `json:"ringToday"`
	RingCumulative   int     `json:"ringCumulative"`
	MuckToday        int     `json:"muckToday"`
	SlurryPressAvg   float64 `json:"slurryPressureAvg"`
	GasAlerts        int     `json:"gasAlerts"`
}

// SummaryPatch — частичный апдейт сводки из SSE. Указатели отличают
// «поле не пришло» от «пришел ноль».
type SummaryPatch struct {
	CameraOnline   *int     `json:"cameraOnline,omitempty"`
	CameraTotal    *int     `json:"cameraTotal,omitempty"`
	RingToday      *int     `json:"ringToday,omitempty"`
	RingCumulative *int     `json:"ringCumulative,omitempty"`
	MuckToday      *int     `json:"muckToday,omitempty"`
	SlurryPressAvg *float64 `json:"slurryPressureAvg,omitempty"`
	GasAlerts      *int     `json:"gasAlerts,omitempty"`
}

// PersonnelStatsPatch и ProgressStatsPatch — частичные апдейты
// статов из потока, по той же схеме что SummaryPatch.
type PersonnelStatsPatch struct {
	TotalOnSite    *int    `json:"totalOnSite,omitempty"`
	AttendanceRate *string `json:"attendanceRate,omitempty"`
	Violations     *int    `json:"violations,omitempty"`
	Managers       *int    `json:"managers,omitempty"`
}

type ProgressStatsPatch struct {
	TotalRings    *int `json:"totalRings,omitempty"`
	TotalGoal     *int `json:"totalGoal,omitempty"`
	DailyRings    *int `json:"dailyRings,omitempty"`
	RemainingDays *int `json:"remainingDays,omitempty"`
	Value         *int `json:"value,omitempty"`
}

type TimeseriesSnapshot struct {
	AdvanceSpeed     []SeriesPoint `json:"advanceSpeed"`
	SlurryPressure   []SeriesPoint `json:"slurryPressure"`
	GasConcentration []SeriesPoint `json:"gasConcentration"`
}

type Notification struct {
	Time    string `json:"time"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type DispatchItem struct {
	Time   string `json:"time"`
	Type   string `json:"type"`
	Unit   string `json:"unit"`
	Status string `json:"status"`
}

type PersonnelStats struct {
	TotalOnSite    int    `json:"totalOnSite"`
	AttendanceRate string `json:"attendanceRate"`
	Violations     int    `json:"violations"`
	Managers       int    `json:"managers"`
}

type TeamShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Worker struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Location string `json:"location"`
	Time     string `json:"time"`
	Temp     string `json:"temp"`
	Status   string `json:"status"`
}

type ProgressStats struct {
	TotalRings    int `json:"totalRings"`
	TotalGoal     int `json:"totalGoal"`
	DailyRings    int `json:"dailyRings"`
	RemainingDays int `json:"remainingDays"`
	Value         int `json:"value"`
}

type GanttTask struct {
	Name     string  `json:"name"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Progress float64 `json:"progress"`
}

type RiskItem struct {
	Level  string `json:"level"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Desc   string `json:"desc"`
	Code   string `json:"code"`
	TS     string `json:"ts"`
}

type SettlementSnapshot struct {
	Actual  []SeriesPoint `json:"actual"`
	Predict []SeriesPoint `json:"predict"`
}

type Camera struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	StreamURL string `json:"streamUrl,omitempty"`
}
