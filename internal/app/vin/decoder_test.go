package vin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormat(t *testing.T) {
	testCases := []struct {
		name    string
		vin     string
		wantErr bool
	}{
		{name: "valid VIN", vin: "1HGBH41JXMN109186", wantErr: false},
		{name: "valid VIN lowercase", vin: "1hgbh41jxmn109186", wantErr: false},
		{name: "valid VIN with spaces", vin: "  1HGBH41JXMN109186  ", wantErr: false},
		{name: "too short", vin: "1HGBH41JXMN10918", wantErr: true},
		{name: "too long", vin: "1HGBH41JXMN1091866", wantErr: true},
		{name: "empty", vin: "", wantErr: true},
		{name: "contains I", vin: "1HGBH41JXMN10918I", wantErr: true},
		{name: "contains O", vin: "1HGBH41JXMN10918O", wantErr: true},
		{name: "contains Q", vin: "1HGBH41JXMN10918Q", wantErr: true},
		{name: "contains punctuation", vin: "1HGBH41JXMN10918-", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFormat(tc.vin)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func nhtsaPayload(errorCode string) string {
	return fmt.Sprintf(`{
		"Results": [
			{"Variable": "Make", "Value": "HONDA"},
			{"Variable": "Model", "Value": "Accord"},
			{"Variable": "Model Year", "Value": "1991"},
			{"Variable": "Error Code", "Value": "%s"},
			{"Variable": "Trim", "Value": null}
		]
	}`, errorCode)
}

func TestDecode(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, nhtsaPayload("0"))
	}))
	defer server.Close()

	d := NewDecoder(server.URL)

	result, err := d.Decode(context.Background(), "1HGBH41JXMN109186")
	require.NoError(t, err)
	assert.Equal(t, "1HGBH41JXMN109186", result.VIN)
	assert.Equal(t, "HONDA", result.Make)
	assert.Equal(t, "Accord", result.Model)
	assert.Equal(t, 1991, result.Year)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, requestCount)

	// Повторный запрос того же VIN должен отдаться из кэша
	result2, err := d.Decode(context.Background(), "1hgbh41jxmn109186")
	require.NoError(t, err)
	assert.Equal(t, result.Make, result2.Make)
	assert.Equal(t, 1, requestCount, "repeated decode must hit the cache")
}

func TestDecodeInvalidFormatSkipsNetwork(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
	}))
	defer server.Close()

	d := NewDecoder(server.URL)

	_, err := d.Decode(context.Background(), "BADVIN")
	assert.Error(t, err)
	assert.Equal(t, 0, requestCount, "invalid VIN must be rejected before any network call")
}

func TestDecodeErrorCodes(t *testing.T) {
	testCases := []struct {
		name      string
		errorCode string
		wantValid bool
	}{
		{name: "no errors", errorCode: "0", wantValid: true},
		{name: "incomplete VIN is benign", errorCode: "6", wantValid: true},
		{name: "benign code list", errorCode: "6,14", wantValid: true},
		{name: "serious error", errorCode: "11", wantValid: false},
		{name: "serious among benign", errorCode: "6,11,14", wantValid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, nhtsaPayload(tc.errorCode))
			}))
			defer server.Close()

			d := NewDecoder(server.URL)
			result, err := d.Decode(context.Background(), "1HGBH41JXMN109186")
			require.NoError(t, err)
			assert.Equal(t, tc.wantValid, result.Valid)
		})
	}
}

func TestDecodeEvictsExpiredEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nhtsaPayload("0"))
	}))
	defer server.Close()

	d := NewDecoder(server.URL)

	// Протухшая запись по чужому VIN должна вымести при следующей вставке
	d.mu.Lock()
	d.cache["5YJSA1E26MF000001"] = cacheEntry{
		result:  &Result{VIN: "5YJSA1E26MF000001"},
		expires: time.Now().Add(-time.Minute),
	}
	d.mu.Unlock()

	_, err := d.Decode(context.Background(), "1HGBH41JXMN109186")
	require.NoError(t, err)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.cache, 1)
	_, stale := d.cache["5YJSA1E26MF000001"]
	assert.False(t, stale, "expired entry must be evicted on insert")
}

func TestDecodeServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDecoder(server.URL)
	_, err := d.Decode(context.Background(), "1HGBH41JXMN109186")
	assert.Error(t, err)
}
