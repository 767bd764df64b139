package httpx

import "net/http"

// Shorthand responders for the common problem classes. Handlers map
// their domain sentinels onto these; anything unmapped falls through
// to Internal, which never leaks the underlying error text.
func BadRequest(w http.ResponseWriter, err error) {
	Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
}

func NotFound(w http.ResponseWriter, err error) {
	Problem(w, http.StatusNotFound, "Not Found", err.Error())
}

func Conflict(w http.ResponseWriter, err error) {
	Problem(w, http.StatusConflict, "Conflict", err.Error())
}

func Unprocessable(w http.ResponseWriter, err error) {
	Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
}

func Internal(w http.ResponseWriter) {
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
