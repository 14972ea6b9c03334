package curve

// Legacy heating tables. The heating predictor consumes these through the
// same interpolation primitive as the battery power curves; they live here so
// both features share one lookup implementation.

// GasEfficiency maps boiler return temperature (°C) to combustion efficiency.
var GasEfficiency = FromMap(map[float64]float64{
	30: 0.97,
	40: 0.95,
	50: 0.91,
	60: 0.87,
	70: 0.82,
	80: 0.78,
})

// HeatPumpCOP maps outside temperature (°C) to coefficient of performance for
// a typical air-source heat pump at 35°C flow.
var HeatPumpCOP = FromMap(map[float64]float64{
	-10: 2.0,
	-5:  2.3,
	0:   2.7,
	5:   3.2,
	10:  3.8,
	15:  4.3,
	20:  4.8,
})
