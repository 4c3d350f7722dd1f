package model

// Forecast model identifiers, also used as ensemble weight keys.
const (
	ModelLinear           = "linear"
	ModelRidge            = "ridge"
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
	ModelXGBoost          = "xgboost"
	ModelEnsemble         = "ensemble"
)

// ForecastModels lists the regressors in training order.
var ForecastModels = []string{
	ModelLinear,
	ModelRidge,
	ModelRandomForest,
	ModelGradientBoosting,
	ModelXGBoost,
}

// TreeEnsembleModels receive the weight of any model missing from a run.
var TreeEnsembleModels = []string{ModelRandomForest, ModelGradientBoosting}
