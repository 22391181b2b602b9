// internal/visibility/dto.go
package visibility

// DTOs for API requests/responses

type CheckVisibilityDTO struct {
	OwnerID     int64   `json:"owner_id" validate:"required"`
	ContentID   int64   `json:"content_id" validate:"required"`
	ContentType string  `json:"content_type" validate:"required,oneof=post story profile photo"`
	Policy      *Policy `json:"policy" validate:"required"`
}

type CreateRuleDTO struct {
	Name       string         `json:"name" validate:"required,min=1,max=100"`
	Conditions []ConditionDTO `json:"conditions" validate:"required,min=1,dive"`
}

type ConditionDTO struct {
	Type     string         `json:"type" validate:"required,oneof=location age interests followers mutual_friends verified custom_list"`
	Operator string         `json:"operator" validate:"required,oneof=equals not_equals greater_than less_than contains not_contains in not_in"`
	Value    ConditionValue `json:"value"`
}

type PreviewAudienceDTO struct {
	Conditions []ConditionDTO `json:"conditions" validate:"required,min=1,dive"`
}

type UpdateRuleDTO struct {
	Name       string         `json:"name" validate:"required,min=1,max=100"`
	Conditions []ConditionDTO `json:"conditions" validate:"required,min=1,dive"`
	IsActive   *bool          `json:"is_active,omitempty"`
}

// ToConditions converts DTO conditions through the construction-time
// validation path, so a malformed condition is rejected before it can
// reach the evaluator.
func ToConditions(dtos []ConditionDTO) ([]Condition, error) {
	conditions := make([]Condition, 0, len(dtos))
	for _, dto := range dtos {
		cond, err := NewCondition(ConditionType(dto.Type), Operator(dto.Operator), dto.Value)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}
