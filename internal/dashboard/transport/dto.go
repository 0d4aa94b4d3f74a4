package transport

import (
	"medicrm_backend/internal/dashboard/aggregate"
	"medicrm_backend/internal/dashboard/repository"
)

type DashboardRequest struct {
	// Days is the size of the trailing window, capped at 365.
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

type DashboardResponse struct {
	KPIs          repository.KPIs             `json:"kpis"`
	LeadsOverTime []aggregate.TimeSeriesPoint `json:"leadsOverTime"`
	Conversions   []aggregate.CategoryCount   `json:"conversionsByCategory"`
	AdPerformance []aggregate.AdStats         `json:"adPerformance"`
}
