package item

type createListingRequest struct {
	CampusID    string `json:"campus_id" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
}

type updateListingRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
}

type reserveResponse struct {
	ReservedUntil string `json:"reserved_until"`
}
