package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	defaultGeocoderURL      = "https://nominatim.openstreetmap.org"
	defaultRoutingURL       = "https://router.project-osrm.org"
	defaultUserAgent        = "Flyttbas/1.0"
	defaultCacheTTL         = 24 * time.Hour
	cacheKeyPrefix          = "maps:distance:"
	errorBodyReadLimit      = 512
	countryCodes            = "se"
	suggestionLimit         = "5"
	msgGeocoderUnavailable  = "geocoding service unavailable"
	msgRoutingUnavailable   = "routing service unavailable"
	msgAddressNotResolvable = "address could not be resolved"
)

// Service geocodes addresses and measures road distance between them.
type Service struct {
	client      *http.Client
	geocoderURL string
	routingURL  string
	userAgent   string
	cache       redis.Cmdable
	cacheTTL    time.Duration
	log         *logger.Logger
}

// Option configures optional service behavior.
type Option func(*Service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithGeocoderURL overrides the Nominatim base URL.
func WithGeocoderURL(baseURL string) Option {
	return func(s *Service) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			s.geocoderURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithRoutingURL overrides the OSRM base URL.
func WithRoutingURL(baseURL string) Option {
	return func(s *Service) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			s.routingURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithUserAgent sets the User-Agent Nominatim's usage policy asks for.
func WithUserAgent(ua string) Option {
	return func(s *Service) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			s.userAgent = trimmed
		}
	}
}

// WithCache enables the Redis distance cache.
func WithCache(cache redis.Cmdable, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func NewService(log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		client:      &http.Client{Timeout: 5 * time.Second},
		geocoderURL: defaultGeocoderURL,
		routingURL:  defaultRoutingURL,
		userAgent:   defaultUserAgent,
		cacheTTL:    defaultCacheTTL,
		log:         log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Distance returns the driving distance between origin and destination.
// Addresses without coordinates are geocoded concurrently first.
func (s *Service) Distance(ctx context.Context, origin, destination Point) (Route, error) {
	key := cacheKey(origin, destination)
	if route, ok := s.cached(ctx, key); ok {
		return route, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	var from, to coordinate
	g.Go(func() error {
		var err error
		from, err = s.resolve(gctx, origin)
		return err
	})
	g.Go(func() error {
		var err error
		to, err = s.resolve(gctx, destination)
		return err
	})
	if err := g.Wait(); err != nil {
		return Route{}, err
	}

	route, err := s.route(ctx, from, to)
	if err != nil {
		return Route{}, err
	}
	s.store(ctx, key, route)
	return route, nil
}

// SearchAddress returns Swedish address suggestions for the quote form.
func (s *Service) SearchAddress(ctx context.Context, query string) ([]AddressSuggestion, error) {
	raw, err := s.search(ctx, query, suggestionLimit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]AddressSuggestion, 0, len(raw))
	for _, r := range raw {
		suggestion, ok := buildSuggestion(r)
		if !ok {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

type coordinate struct {
	lat float64
	lng float64
}

func (s *Service) resolve(ctx context.Context, p Point) (coordinate, error) {
	if p.hasCoordinates() {
		return coordinate{lat: *p.Lat, lng: *p.Lng}, nil
	}
	if strings.TrimSpace(p.Address) == "" {
		return coordinate{}, apperr.Validation("address or coordinates are required")
	}

	results, err := s.search(ctx, p.Address, "1")
	if err != nil {
		return coordinate{}, err
	}
	if len(results) == 0 {
		return coordinate{}, apperr.Validation(msgAddressNotResolvable).WithDetails(map[string]string{"address": p.Address})
	}
	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return coordinate{}, apperr.Collaborator(msgGeocoderUnavailable, errors.Join(errLat, errLng))
	}
	return coordinate{lat: lat, lng: lng}, nil
}

func (s *Service) search(ctx context.Context, query, limit string) ([]nominatimResponse, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", limit)
	params.Add("countrycodes", countryCodes)

	reqURL := fmt.Sprintf("%s/search?%s", s.geocoderURL, params.Encode())
	var results []nominatimResponse
	if err := s.getJSON(ctx, reqURL, &results); err != nil {
		s.log.CollaboratorFailure("nominatim", err)
		return nil, apperr.Collaborator(msgGeocoderUnavailable, err)
	}
	return results, nil
}

func (s *Service) route(ctx context.Context, from, to coordinate) (Route, error) {
	reqURL := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=false",
		s.routingURL,
		formatCoord(from.lng), formatCoord(from.lat),
		formatCoord(to.lng), formatCoord(to.lat))

	var payload osrmResponse
	if err := s.getJSON(ctx, reqURL, &payload); err != nil {
		s.log.CollaboratorFailure("osrm", err)
		return Route{}, apperr.Collaborator(msgRoutingUnavailable, err)
	}
	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return Route{}, apperr.Collaborator(msgRoutingUnavailable, fmt.Errorf("osrm returned %q", payload.Code))
	}

	best := payload.Routes[0]
	return Route{
		DistanceKm:      math.Round(best.Distance/100) / 10,
		DurationMinutes: int(math.Round(best.Duration / 60)),
	}, nil
}

func (s *Service) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Service) cached(ctx context.Context, key string) (Route, bool) {
	if s.cache == nil {
		return Route{}, false
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("distance cache read failed", "error", err)
		}
		return Route{}, false
	}
	var route Route
	if err := json.Unmarshal([]byte(raw), &route); err != nil {
		return Route{}, false
	}
	return route, true
}

func (s *Service) store(ctx context.Context, key string, route Route) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(route)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.log.Warn("distance cache write failed", "error", err)
	}
}

// cacheKey normalises both ends so that spelling variants of the same
// address pair share an entry.
func cacheKey(origin, destination Point) string {
	return cacheKeyPrefix + pointKey(origin) + "|" + pointKey(destination)
}

func pointKey(p Point) string {
	if p.hasCoordinates() {
		return formatCoord(*p.Lat) + "," + formatCoord(*p.Lng)
	}
	return strings.Join(strings.Fields(strings.ToLower(p.Address)), " ")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func buildSuggestion(raw nominatimResponse) (AddressSuggestion, bool) {
	if raw.Address.Road == "" {
		return AddressSuggestion{}, false
	}

	city := pickCity(raw.Address)
	if city == "" {
		return AddressSuggestion{}, false
	}

	suggestion := AddressSuggestion{
		Street:      raw.Address.Road,
		HouseNumber: raw.Address.HouseNumber,
		PostalCode:  strings.ReplaceAll(raw.Address.Postcode, " ", ""),
		City:        city,
		Lat:         raw.Lat,
		Lon:         raw.Lon,
	}
	suggestion.Label = buildLabel(suggestion)
	return suggestion, true
}

func pickCity(address nominatimAddress) string {
	for _, candidate := range []string{address.City, address.Town, address.Village, address.Municipality, address.Hamlet} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// buildLabel renders "Street 12, 11122 City".
func buildLabel(suggestion AddressSuggestion) string {
	street := strings.TrimSpace(suggestion.Street + " " + suggestion.HouseNumber)
	place := strings.TrimSpace(suggestion.PostalCode + " " + suggestion.City)
	return street + ", " + place
}
