package maps

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// fakeOSM answers Nominatim searches for two Swedish addresses and one OSRM route.
func fakeOSM(t *testing.T, geocodes, routes *int32) roundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("User-Agent") != "flyttbas-test" {
			t.Errorf("missing user agent, got %q", req.Header.Get("User-Agent"))
		}
		switch {
		case req.URL.Host == "geo.test" && req.URL.Path == "/search":
			atomic.AddInt32(geocodes, 1)
			if req.URL.Query().Get("countrycodes") != "se" {
				t.Errorf("expected Swedish results only, got %q", req.URL.Query().Get("countrycodes"))
			}
			if strings.Contains(req.URL.Query().Get("q"), "Storgatan") {
				return jsonResponse(http.StatusOK, `[{"lat":"59.3293","lon":"18.0686","address":{"road":"Storgatan","postcode":"111 22","city":"Stockholm"}}]`), nil
			}
			if strings.Contains(req.URL.Query().Get("q"), "Kungsgatan") {
				return jsonResponse(http.StatusOK, `[{"lat":"57.7089","lon":"11.9746","address":{"road":"Kungsgatan","postcode":"411 01","city":"Göteborg"}}]`), nil
			}
			return jsonResponse(http.StatusOK, `[]`), nil
		case req.URL.Host == "route.test":
			atomic.AddInt32(routes, 1)
			want := "/route/v1/driving/18.068600,59.329300;11.974600,57.708900"
			if req.URL.Path != want {
				t.Errorf("unexpected route path %q", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{"code":"Ok","routes":[{"distance":470349.6,"duration":16530}]}`), nil
		}
		t.Errorf("unexpected request %s", req.URL)
		return jsonResponse(http.StatusNotFound, ""), nil
	}
}

func newTestService(rt http.RoundTripper, opts ...Option) *Service {
	base := []Option{
		WithHTTPClient(&http.Client{Transport: rt}),
		WithGeocoderURL("http://geo.test/"),
		WithRoutingURL("http://route.test"),
		WithUserAgent("flyttbas-test"),
	}
	return NewService(logger.Discard(), append(base, opts...)...)
}

func TestDistanceGeocodesBothEndsAndRoutes(t *testing.T) {
	var geocodes, routes int32
	svc := newTestService(fakeOSM(t, &geocodes, &routes))

	route, err := svc.Distance(context.Background(),
		Point{Address: "Storgatan 1, Stockholm"},
		Point{Address: "Kungsgatan 2, Göteborg"})
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if route.DistanceKm != 470.3 {
		t.Fatalf("expected 470.3 km, got %v", route.DistanceKm)
	}
	if route.DurationMinutes != 276 {
		t.Fatalf("expected 276 minutes, got %d", route.DurationMinutes)
	}
	if geocodes != 2 || routes != 1 {
		t.Fatalf("expected 2 geocodes and 1 route, got %d and %d", geocodes, routes)
	}
}

func TestDistanceSkipsGeocodingWhenCoordinatesKnown(t *testing.T) {
	var geocodes, routes int32
	svc := newTestService(fakeOSM(t, &geocodes, &routes))
	lat1, lng1, lat2, lng2 := 59.3293, 18.0686, 57.7089, 11.9746

	_, err := svc.Distance(context.Background(),
		Point{Address: "ignored", Lat: &lat1, Lng: &lng1},
		Point{Lat: &lat2, Lng: &lng2})
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if geocodes != 0 {
		t.Fatalf("expected no geocoding, got %d calls", geocodes)
	}
}

func TestDistanceUsesRedisCacheForNormalisedPairs(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var geocodes, routes int32
	svc := newTestService(fakeOSM(t, &geocodes, &routes), WithCache(rdb, time.Hour))

	ctx := context.Background()
	if _, err := svc.Distance(ctx, Point{Address: "Storgatan 1,  Stockholm"}, Point{Address: "Kungsgatan 2, Göteborg"}); err != nil {
		t.Fatalf("first distance: %v", err)
	}
	route, err := svc.Distance(ctx, Point{Address: "storgatan 1, stockholm"}, Point{Address: "KUNGSGATAN 2,   Göteborg"})
	if err != nil {
		t.Fatalf("second distance: %v", err)
	}
	if routes != 1 {
		t.Fatalf("expected cached second lookup, got %d route calls", routes)
	}
	if route.DistanceKm != 470.3 {
		t.Fatalf("unexpected cached route %+v", route)
	}

	key := cacheKey(Point{Address: "storgatan 1, stockholm"}, Point{Address: "kungsgatan 2, göteborg"})
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestDistanceIgnoresBrokenCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	var geocodes, routes int32
	svc := newTestService(fakeOSM(t, &geocodes, &routes), WithCache(rdb, time.Hour))
	if _, err := svc.Distance(context.Background(), Point{Address: "Storgatan 1"}, Point{Address: "Kungsgatan 2"}); err != nil {
		t.Fatalf("cache outage must not fail the lookup: %v", err)
	}
}

func TestDistanceUnknownAddressIsValidation(t *testing.T) {
	var geocodes, routes int32
	svc := newTestService(fakeOSM(t, &geocodes, &routes))

	_, err := svc.Distance(context.Background(), Point{Address: "Storgatan 1"}, Point{Address: "Ingenstans 99"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if routes != 0 {
		t.Fatalf("expected no routing after a failed geocode")
	}
}

func TestDistanceUpstreamFailureIsCollaborator(t *testing.T) {
	svc := newTestService(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, "busy"), nil
	}))

	_, err := svc.Distance(context.Background(), Point{Address: "Storgatan 1"}, Point{Address: "Kungsgatan 2"})
	if !apperr.Is(err, apperr.KindCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}

func TestSearchAddressBuildsSwedishLabels(t *testing.T) {
	var geocodes, routes int32
	svc := newTestService(fakeOSM(t, &geocodes, &routes))

	results, err := svc.SearchAddress(context.Background(), "Storgatan")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(results))
	}
	if results[0].Label != "Storgatan, 11122 Stockholm" {
		t.Fatalf("unexpected label %q", results[0].Label)
	}
	if results[0].PostalCode != "11122" {
		t.Fatalf("expected compact postal code, got %q", results[0].PostalCode)
	}
}
