package resource

import "net/http"

// Result is the envelope of every scene response.
type Result struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

func OK(data interface{}) *Result {
	return &Result{
		Code: http.StatusOK,
		Msg:  "success",
		Data: data,
	}
}

func Fail(code int, err error) *Result {
	return &Result{
		Code: code,
		Msg:  err.Error(),
	}
}
