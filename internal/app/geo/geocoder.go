package geo

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"
)

// ErrUnavailable - клиент карт не настроен или недоступен;
// форма должна деградировать до ручного ввода, а не блокироваться
var ErrUnavailable = errors.New("сервис геокодирования недоступен")

// Address - нормализованный адрес фиксированной формы
type Address struct {
	StreetNumber     string  `json:"street_number"`
	Route            string  `json:"route"`
	Locality         string  `json:"locality"`
	Region           string  `json:"region"`
	PostalCode       string  `json:"postal_code"`
	Country          string  `json:"country"`
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Prediction - подсказка автодополнения
type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"place_id"`
}

// Geocoder - обёртка над Google Maps клиентом
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder - создание геокодера. Пустой ключ или ошибка инициализации
// не валят сервис: geocoder остаётся в деградированном режиме.
func NewGeocoder(apiKey string) *Geocoder {
	if apiKey == "" {
		logrus.Warn("GOOGLE_MAPS_API_KEY не задан, геокодирование отключено")
		return &Geocoder{}
	}

	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		logrus.Errorf("не удалось создать клиент карт: %v", err)
		return &Geocoder{}
	}
	return &Geocoder{client: client}
}

// Available - настроен ли внешний клиент
func (g *Geocoder) Available() bool {
	return g.client != nil
}

// Geocode - геокодирование адреса в нормализованную форму
func (g *Geocoder) Geocode(ctx context.Context, address string) (*Address, error) {
	if g.client == nil {
		return nil, ErrUnavailable
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		logrus.Errorf("geocode %q: %v", address, err)
		return nil, ErrUnavailable
	}
	if len(results) == 0 {
		return nil, errors.New("адрес не найден")
	}

	addr := NormalizeComponents(results[0].AddressComponents)
	addr.FormattedAddress = results[0].FormattedAddress
	addr.Lat = results[0].Geometry.Location.Lat
	addr.Lng = results[0].Geometry.Location.Lng
	return &addr, nil
}

// Autocomplete - подсказки адресов по введённому тексту
func (g *Geocoder) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	if g.client == nil {
		return nil, ErrUnavailable
	}

	resp, err := g.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{Input: input})
	if err != nil {
		logrus.Errorf("autocomplete %q: %v", input, err)
		return nil, ErrUnavailable
	}

	predictions := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		predictions = append(predictions, Prediction{
			Description: p.Description,
			PlaceID:     p.PlaceID,
		})
	}
	return predictions, nil
}

// NormalizeComponents - раскладка списка компонент адреса в фиксированную структуру
func NormalizeComponents(components []maps.AddressComponent) Address {
	var addr Address
	for _, c := range components {
		for _, t := range c.Types {
			switch t {
			case "street_number":
				addr.StreetNumber = c.LongName
			case "route":
				addr.Route = c.LongName
			case "locality":
				addr.Locality = c.LongName
			case "administrative_area_level_1":
				addr.Region = c.ShortName
			case "postal_code":
				addr.PostalCode = c.LongName
			case "country":
				addr.Country = c.ShortName
			}
		}
	}
	return addr
}
