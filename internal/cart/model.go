package cart

import "math"

type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	ImageURL string  `json:"image_url,omitempty"`
}

// TotalOf sums price × quantity, accumulating in cents.
func TotalOf(items []Item) float64 {
	var cents int64
	for _, item := range items {
		cents += int64(math.Round(item.Price*100)) * int64(item.Quantity)
	}
	return float64(cents) / 100
}

func CountOf(items []Item) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
