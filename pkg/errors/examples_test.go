package errors_test

import (
	"fmt"
	"net/http"

	"github.com/agentstation/casesync/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := &errors.NotFoundError{
		Resource: "case",
		ID:       "12/3",
	}

	if errors.IsNotFound(err) {
		fmt.Println("Resource not found")
	}

	// Output: Resource not found
}

// Example_remoteError shows how a failed fetch is turned into a user message.
func Example_remoteError() {
	err := errors.NewRemoteError(
		errors.ClassifyStatus(http.StatusInternalServerError),
		"fetch",
		"https://cases.example.com/casesForUser/2",
		http.StatusInternalServerError,
		nil,
	)

	fmt.Println(errors.KindOf(err))
	fmt.Println(err.Message())
	fmt.Println(errors.IsRemoteUnavailable(err))

	// Output:
	// server_error
	// Data not synchronised, database unreachable.
	// true
}

// Example_hTTPStatusMapping maps HTTP codes to outcome kinds.
func Example_hTTPStatusMapping() {
	for _, code := range []int{0, 404, 503, 418} {
		fmt.Printf("%d -> %s\n", code, errors.ClassifyStatus(code))
	}

	// Output:
	// 0 -> no_connectivity
	// 404 -> not_found
	// 503 -> server_error
	// 418 -> unknown
}
