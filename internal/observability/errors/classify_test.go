package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type leaseExpiredError struct{}

func (leaseExpiredError) Error() string { return "lease expired" }

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Classify(nil))
	assert.Equal(t, "error", Classify(stderrors.New("boom")))
	assert.Equal(t, "errors_leaseexpirederror", Classify(leaseExpiredError{}))
	assert.Equal(t, "errors_leaseexpirederror",
		Classify(fmt.Errorf("handle batch: %w", leaseExpiredError{})),
		"wrapped errors classify by the innermost type")
}
