//go:build gomock || generate

package api

//go:generate sh -c "go run go.uber.org/mock/mockgen -package api -destination mock_store_test.go github.com/kumarlokesh/sysd/exercises/tst/internal/store Store"
