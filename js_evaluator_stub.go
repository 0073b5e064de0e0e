//go:build !js_eval

package factory

// NewJSEvaluator is unavailable without the js_eval build tag and returns
// nil, which WithExpressionEngine ignores.
func NewJSEvaluator(opts ...JSEvaluatorOption) ExpressionEngine {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
