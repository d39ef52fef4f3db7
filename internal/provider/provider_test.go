package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/model"
)

func testClient() *Client { return NewClient(5*time.Second, 0) }

func TestNationalGridFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, nationalGridResourceID, r.URL.Query().Get("resource_id"))
		fmt.Fprint(w, `{
			"success": true,
			"result": {"records": [
				{"Reference": "INCD-1", "Postcodes": "E1 6AN, E1 7AA", "Start Time": "2026-03-12T08:30:00", "Status": "Unplanned", "Region": "East"},
				{"Reference": "INCD-2", "Postcodes": "M1 1AE", "Start Time": "2026-03-13T09:00:00", "Planned": true}
			]}
		}`)
	}))
	defer srv.Close()

	a := NewNationalGrid(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.ProviderNationalGrid, records[0].Provider)
	assert.Equal(t, "INCD-1", records[0].NativeID)
	assert.Equal(t, "Unplanned", records[0].Status)
	assert.Equal(t, []string{"E1 6AN", "E1 7AA"}, records[0].Postcodes)

	// Status 缺失时由 Planned 推导
	assert.Equal(t, "planned", records[1].Status)
}

func TestNationalGridEnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": false}`)
	}))
	defer srv.Close()

	a := NewNationalGrid(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	_, err := a.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestNIENetworksFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"outageMessage": [
			{"outageId": "N-7", "outageType": "Fault", "startTime": "5:04 PM, 12 Mar", "fullPostCodes": "BT1 1AA;BT1 2BB; BT2 3CC"}
		]}`)
	}))
	defer srv.Close()

	a := NewNIENetworks(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "N-7", records[0].NativeID)
	assert.Equal(t, []string{"BT1 1AA", "BT1 2BB", "BT2 3CC"}, records[0].Postcodes)
}

func TestNorthernPowergridFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"Reference": "NP-1", "NatureOfOutage": "Unplanned", "LoggedTime": "2026-03-12 08:30:00", "Postcode": "NE1 1AA", "Stage": "Restored"},
			{"Reference": "NP-2", "NatureOfOutage": "Planned", "LoggedTime": "2026-03-12 09:00:00", "Postcode": "NE2 2BB"}
		]`)
	}))
	defer srv.Close()

	a := NewNorthernPowergrid(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Stage 优先于 NatureOfOutage
	assert.Equal(t, "Restored", records[0].Status)
	assert.Equal(t, "Planned", records[1].Status)
}

func TestSSENFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Faults": [
			{"reference": "S-1", "type": "power cut", "loggedAt": "2026-03-12T08:30:00", "affectedAreas": ["KY16 9SS", "KY16 8LA"]}
		]}`)
	}))
	defer srv.Close()

	a := NewSSEN(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"KY16 9SS", "KY16 8LA"}, records[0].Postcodes)
}

func TestSPEnergyFetch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"total_count": 1, "results": [
			{"fields": {"reference": "SP-1", "status": "live", "date_of_reported_fault": "2026-03-12T08:30:00", "postcode_sector": ["CH7 6", "CH7 7"]}}
		]}`)
	}))
	defer srv.Close()

	a := NewSPEnergy(config.ProviderConfig{BaseURL: srv.URL, APIKey: "k123"}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Apikey k123", gotAuth)
	assert.Equal(t, "SP-1", records[0].NativeID)
	assert.Equal(t, []string{"CH7 6", "CH7 7"}, records[0].Postcodes)
}

func TestSPEnergyPrefersPlannedStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count": 1, "results": [
			{"reference": "SP-2", "status": "planned", "date_of_reported_fault": "2026-03-01T00:00:00", "planned_outage_start_date": "2026-03-20T09:00:00", "postcode_sector": ["CH7 6"]}
		]}`)
	}))
	defer srv.Close()

	a := NewSPEnergy(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-03-20T09:00:00", records[0].StartedAt)
}

func TestUKPowerNetworksFetchPaginates(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		offset := r.URL.Query().Get("offset")
		env := odsEnvelope{}
		if offset == "0" {
			// 满页触发继续翻页
			for i := 0; i < odsPageSize; i++ {
				raw, _ := json.Marshal(map[string]any{
					"incidentreference": fmt.Sprintf("UK-%03d", i),
					"powercuttype":      "unplanned",
					"creationdatetime":  "2026-03-12T08:30:00",
					"postcodesaffected": "E1 6AN,E1 7AA",
				})
				env.Results = append(env.Results, raw)
			}
		}
		_ = json.NewEncoder(w).Encode(env)
	}))
	defer srv.Close()

	a := NewUKPowerNetworks(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	require.Len(t, records, odsPageSize)
	assert.Equal(t, "UK-000", records[0].NativeID)
	assert.Equal(t, []string{"E1 6AN", "E1 7AA"}, records[0].Postcodes)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	for _, a := range []Adapter{
		NewNationalGrid(config.ProviderConfig{BaseURL: srv.URL}, testClient()),
		NewNIENetworks(config.ProviderConfig{BaseURL: srv.URL}, testClient()),
		NewNorthernPowergrid(config.ProviderConfig{BaseURL: srv.URL}, testClient()),
		NewSPEnergy(config.ProviderConfig{BaseURL: srv.URL}, testClient()),
		NewSSEN(config.ProviderConfig{BaseURL: srv.URL}, testClient()),
		NewUKPowerNetworks(config.ProviderConfig{BaseURL: srv.URL}, testClient()),
	} {
		_, err := a.Fetch(context.Background())
		assert.True(t, errors.Is(err, ErrSourceUnavailable), "provider %s", a.Provider())
	}
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	a := NewSSEN(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	_, err := a.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestFetchEmptyFeed(t *testing.T) {
	// 空结果是正常情况，不是错误
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Faults": []}`)
	}))
	defer srv.Close()

	a := NewSSEN(config.ProviderConfig{BaseURL: srv.URL}, testClient())
	records, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSplitJoined(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitJoined("a, b,", ","))
	assert.Nil(t, splitJoined("  ", ","))
}
