package models

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type WeatherRequest struct {
	Location string `json:"location"`
	CropType string `json:"cropType"`
}

type QueryRequest struct {
	Query string `json:"query"`
}

type PlanningRequest struct {
	LandSize    string `json:"landSize"`
	SoilType    string `json:"soilType"`
	WaterSource string `json:"waterSource"`
	Budget      string `json:"budget"`
	CropType    string `json:"cropType"`
}

type AnalyzeRequest struct {
	CropID string `form:"cropId" json:"cropId"`
}
