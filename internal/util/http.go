package util

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// GetBytes fetches url with a short timeout. Non-2xx responses are errors.
func GetBytes(url string) ([]byte, error) {
	client := http.Client{Timeout: 12 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
