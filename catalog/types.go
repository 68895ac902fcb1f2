package catalog

// Statistics corresponds to "Product statistics" (GET /products/{id}/statistics).
type Statistics struct {
	ProductID     string  `json:"productId"`
	SoldQuantity  int64   `json:"soldQuantity"`
	ViewCount     int64   `json:"viewCount,omitempty"`
	RatingAverage float64 `json:"ratingAverage,omitempty"`
	RatingCount   int64   `json:"ratingCount,omitempty"`
}
