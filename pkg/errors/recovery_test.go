package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))

	assert.Equal(t, "TestOperation", panicErr.Operation)
	assert.Equal(t, "test panic message", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in TestOperation: test panic message", panicErr.Error())
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	assert.NoError(t, testFunc())
}

// TestRecover_WithExistingError tests Recover when function has existing error and panic occurs
func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	require.Error(t, err)

	errMsg := err.Error()
	assert.True(t, strings.Contains(errMsg, "panic in TestOperation"))
	assert.True(t, strings.Contains(errMsg, "original error"))
	assert.True(t, errors.Is(err, originalErr))
}

func TestSafeExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		assert.NoError(t, SafeExecute("op", func() error { return nil }))
	})

	t.Run("function error", func(t *testing.T) {
		originalErr := fmt.Errorf("function error")
		err := SafeExecute("op", func() error { return originalErr })
		assert.Equal(t, originalErr, err)
	})

	t.Run("panic", func(t *testing.T) {
		err := SafeExecute("op", func() error {
			panic("test panic in safe execute")
		})
		var panicErr *PanicError
		require.True(t, errors.As(err, &panicErr))
		assert.Equal(t, "test panic in safe execute", panicErr.PanicValue)
		assert.Contains(t, panicErr.String(), "Stack trace:")
	})
}

func TestSafeRow(t *testing.T) {
	assert.Nil(t, SafeRow(0, "amenities", func() error { return nil }))

	w := SafeRow(3, "amenities", func() error { return fmt.Errorf("bad token") })
	require.NotNil(t, w)
	assert.Equal(t, 3, w.Row)
	assert.Equal(t, "amenities", w.Column)
	assert.Equal(t, "row 3: column amenities left unchanged: bad token", w.Error())

	w = SafeRow(4, "cityname", func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})
	require.NotNil(t, w)
	assert.Contains(t, w.Reason, "panic in cityname")
}

// BenchmarkRecover_NoPanic measures the overhead of Recover when no panic occurs
func BenchmarkRecover_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		func() (err error) {
			defer Recover(&err, "BenchmarkOp")
			return nil
		}()
	}
}
