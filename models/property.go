package models

import "time"

// NotFound is the canonical placeholder for a schema field that could not
// be extracted. Every PropertyRecord field is always populated, either with
// a value or with this sentinel, never left empty.
const NotFound = "not found"

// PropertyRecord holds the full extracted schema for one listing.
// It is created or replaced wholesale on each successful detail scrape.
type PropertyRecord struct {
	FinnCode string `json:"finn_code" db:"finn_code"`

	Title   string `json:"title" db:"title"`
	Address string `json:"address" db:"address"`

	AskingPrice string `json:"asking_price" db:"asking_price"`
	TotalPrice  string `json:"total_price" db:"total_price"`
	Costs       string `json:"costs" db:"costs"`
	JointDebt   string `json:"joint_debt" db:"joint_debt"`
	MonthlyFee  string `json:"monthly_fee" db:"monthly_fee"`

	PropertyType       string `json:"property_type" db:"property_type"`
	Ownership          string `json:"ownership" db:"ownership"`
	Bedrooms           string `json:"bedrooms" db:"bedrooms"`
	InternalArea       string `json:"internal_area" db:"internal_area"`
	UsableArea         string `json:"usable_area" db:"usable_area"`
	ExternalUsableArea string `json:"external_usable_area" db:"external_usable_area"`
	Floor              string `json:"floor" db:"floor"`
	BuildYear          string `json:"build_year" db:"build_year"`
	Rooms              string `json:"rooms" db:"rooms"`

	LocalArea string   `json:"local_area" db:"local_area"`
	AreaName  string   `json:"area_name" db:"area_name"`
	Images    []string `json:"images" db:"images"`

	Latitude  *float64 `json:"latitude" db:"latitude"`
	Longitude *float64 `json:"longitude" db:"longitude"`

	ScrapeStatus ScrapeStatus `json:"scrape_status" db:"scrape_status"`
	LastChecked  time.Time    `json:"last_date_checked" db:"last_date_checked"`
}

// NewPropertyRecord returns a record with every schema field set to the
// missing sentinel and the image slots sized to n.
func NewPropertyRecord(finnCode string, nImages int) *PropertyRecord {
	images := make([]string, nImages)
	for i := range images {
		images[i] = NotFound
	}
	return &PropertyRecord{
		FinnCode:           finnCode,
		Title:              NotFound,
		Address:            NotFound,
		AskingPrice:        NotFound,
		TotalPrice:         NotFound,
		Costs:              NotFound,
		JointDebt:          NotFound,
		MonthlyFee:         NotFound,
		PropertyType:       NotFound,
		Ownership:          NotFound,
		Bedrooms:           NotFound,
		InternalArea:       NotFound,
		UsableArea:         NotFound,
		ExternalUsableArea: NotFound,
		Floor:              NotFound,
		BuildYear:          NotFound,
		Rooms:              NotFound,
		LocalArea:          NotFound,
		AreaName:           NotFound,
		Images:             images,
		ScrapeStatus:       ScrapePending,
	}
}
