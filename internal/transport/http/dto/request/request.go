package request

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	// GuestToken links the registration to an existing guest account so
	// its data survives the upgrade.
	GuestToken string `json:"guest_token,omitempty" validate:"omitempty,uuid4"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type GuestRequest struct {
	Timezone string `json:"timezone,omitempty"`
}

type ConvertDemoRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type DemoStartRequest struct {
	Timezone string `json:"timezone,omitempty"`
}
