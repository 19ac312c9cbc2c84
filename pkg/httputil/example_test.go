package httputil_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/silverpulse/heat/pkg/config"
	"github.com/silverpulse/heat/pkg/httputil"
	"github.com/silverpulse/heat/pkg/logger"
)

// Example_getBytes downloads a small CSV body
func Example_getBytes() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "date,ounces\n2024-01-05,450000000\n")
	}))
	defer server.Close()

	cfg := &config.Config{Env: "development", LogLevel: "error"}
	client := httputil.New(cfg, logger.Nop())

	body, err := client.GetBytes(context.Background(), server.URL)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}

	fmt.Printf("%d bytes\n", len(body))
	// Output:
	// 33 bytes
}
