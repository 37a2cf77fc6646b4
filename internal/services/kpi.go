package services

import (
	"sales-insight/internal/aggregate"
	"sales-insight/internal/config"
	"sales-insight/internal/models"
	"sales-insight/internal/strategy"
	"sales-insight/internal/timeseries"
)

// buildKPIs rolls the engine results up into the headline figures. Shares
// and rates are rounded to 4 places; churn rate and forecast accuracy stay
// nil when their models did not run.
func buildKPIs(rep *Report, products, customers models.Outcome[[]models.KeyValue], cfg config.AnalysisConfig) models.KPIBundle {
	total := rep.Summary.TotalRevenue.Value
	k := models.KPIBundle{TotalRevenue: models.Round(total, 2)}

	if rep.Monthly.OK() {
		k.GrowthPct = models.Round(timeseries.TrailingGrowth(rep.Monthly.Value, cfg.TimeSeries.GrowthWindow), 4)
	}
	if products.OK() {
		k.Top5ProductShare = models.Round(aggregate.TopShare(products.Value, total, cfg.Aggregate.TopN, 1), 4)
	}
	if customers.OK() {
		k.Top5CustomerShare = models.Round(aggregate.TopShare(customers.Value, total, cfg.Aggregate.TopN, cfg.Aggregate.MinGroupsForShare), 4)
	}
	if rep.Churn.OK() {
		rate := models.Round(rep.Churn.Value.Rate(), 4)
		k.ChurnRate = &rate
	}
	if rep.Seasonality.Backtest.OK() {
		acc := models.Round(rep.Seasonality.Backtest.Value.ModelAccuracy, 4)
		k.ForecastAccuracy = &acc
	}
	return k
}

func strategyInputs(rep *Report) strategy.Inputs {
	in := strategy.Inputs{TotalRevenue: rep.Summary.TotalRevenue.Value}
	if rep.Summary.TopCustomers.OK() {
		in.TopCustomers = rep.Summary.TopCustomers.Value
	}
	if rep.Summary.TopProducts.OK() {
		in.TopProducts = rep.Summary.TopProducts.Value
	}
	if rep.Summary.TopRegions.OK() {
		in.TopRegions = rep.Summary.TopRegions.Value
	}
	if rep.Seasonality.Forecast.OK() {
		v := rep.Seasonality.Forecast.Value.Value
		in.NextMonthForecast = &v
	}
	if rep.Inactive.OK() {
		n := len(rep.Inactive.Value)
		in.ChurnCount = &n
	}
	if rep.CustomerTiers.OK() {
		n := rep.CustomerTiers.Value.HighValueCount
		in.HighValueCustomers = &n
	}
	return in
}
