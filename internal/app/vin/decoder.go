package vin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// VIN не содержит букв I, O, Q (путаются с 1 и 0)
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// Несерьёзные коды ошибок NHTSA: частичные данные и предупреждения,
// при которых VIN всё равно считается валидным.
var benignErrorCodes = map[string]bool{
	"0":  true, // без ошибок
	"6":  true, // incomplete VIN
	"7":  true, // manufacturer not registered
	"8":  true, // no detailed data
	"14": true, // unused position characters
}

// Result - нормализованный результат декодирования
type Result struct {
	VIN    string   `json:"vin"`
	Make   string   `json:"make"`
	Model  string   `json:"model"`
	Year   int      `json:"year"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateFormat - локальная проверка формата VIN: длина 17, только допустимые символы.
// Невалидный вход отбрасывается без похода в сеть.
func ValidateFormat(vin string) error {
	v := strings.ToUpper(strings.TrimSpace(vin))
	if len(v) != 17 {
		return fmt.Errorf("VIN должен содержать ровно 17 символов")
	}
	if !vinPattern.MatchString(v) {
		return fmt.Errorf("VIN содержит недопустимые символы")
	}
	return nil
}

type cacheEntry struct {
	result  *Result
	expires time.Time
}

// Decoder - клиент API NHTSA с коротким кэшем на повторные запросы
// (серверный аналог debounce на клиенте)
type Decoder struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
	ttl   time.Duration
}

// NewDecoder - создание декодера. baseURL без завершающего слеша,
// например https://vpic.nhtsa.dot.gov/api
func NewDecoder(baseURL string) *Decoder {
	return &Decoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		cache:   make(map[string]cacheEntry),
		ttl:     30 * time.Second,
	}
}

// ответ NHTSA: массив пар Variable/Value, значения бывают null
type nhtsaResponse struct {
	Results []struct {
		Variable string  `json:"Variable"`
		Value    *string `json:"Value"`
	} `json:"Results"`
}

// Decode - декодирование VIN через внешний сервис.
// Формат проверяется локально до запроса; повторный запрос того же VIN
// в пределах TTL отдаётся из кэша (идемпотентное отображение).
func (d *Decoder) Decode(ctx context.Context, vin string) (*Result, error) {
	v := strings.ToUpper(strings.TrimSpace(vin))
	if err := ValidateFormat(v); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if entry, ok := d.cache[v]; ok && time.Now().Before(entry.expires) {
		d.mu.Unlock()
		return entry.result, nil
	}
	d.mu.Unlock()

	url := fmt.Sprintf("%s/vehicles/DecodeVin/%s?format=json", d.baseURL, v)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("сервис декодирования VIN недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервис декодирования VIN вернул статус %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded nhtsaResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("неожиданный ответ сервиса декодирования VIN: %w", err)
	}

	result := normalize(v, decoded)

	d.mu.Lock()
	// Попутно выметаем протухшие записи, иначе карта растёт на каждом новом VIN
	now := time.Now()
	for key, entry := range d.cache {
		if now.After(entry.expires) {
			delete(d.cache, key)
		}
	}
	d.cache[v] = cacheEntry{result: result, expires: now.Add(d.ttl)}
	d.mu.Unlock()

	return result, nil
}

// normalize - приведение разнородных полей ответа к фиксированной форме
func normalize(vin string, decoded nhtsaResponse) *Result {
	result := &Result{
		VIN:    vin,
		Valid:  true,
		Errors: []string{},
	}

	for _, item := range decoded.Results {
		if item.Value == nil || *item.Value == "" {
			continue
		}
		value := strings.TrimSpace(*item.Value)

		switch item.Variable {
		case "Make":
			result.Make = value
		case "Model":
			result.Model = value
		case "Model Year":
			if year, err := strconv.Atoi(value); err == nil {
				result.Year = year
			}
		case "Error Code":
			// Код может быть списком вида "6,14"; валидность рушат только серьёзные коды
			for _, code := range strings.Split(value, ",") {
				code = strings.TrimSpace(code)
				if code == "" || benignErrorCodes[code] {
					continue
				}
				result.Valid = false
			}
		case "Error Text":
			if value != "" && !strings.HasPrefix(value, "0") {
				result.Errors = append(result.Errors, value)
			}
		}
	}

	if !result.Valid {
		logrus.Warnf("VIN %s отклонён декодером: %v", vin, result.Errors)
	}

	return result
}
