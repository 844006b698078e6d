package dto

import (
	"fmt"
	"time"
	"unicode/utf8"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/service"
)

func maxLen(verr *service.ValidationError, field string, v dom.Optional[string], max int) {
	if v.Set && utf8.RuneCountInString(v.Value) > max {
		verr.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", max))
	}
}

func timeOpt(o dom.Optional[FlexTime]) dom.Optional[*time.Time] {
	if !o.Set {
		return dom.Optional[*time.Time]{}
	}
	return dom.Some(o.Value.Ptr())
}

// requiredTime maps a non-nullable timestamp. An explicit null is treated as
// absent so the service reports the field as required.
func requiredTime(o dom.Optional[FlexTime]) dom.Optional[time.Time] {
	if !o.Set || o.Value.IsZero() {
		return dom.Optional[time.Time]{}
	}
	return dom.Some(o.Value.Time)
}

func dateOpt(o dom.Optional[Date]) dom.Optional[*time.Time] {
	if !o.Set {
		return dom.Optional[*time.Time]{}
	}
	return dom.Some(o.Value.Ptr())
}

func durationOpt(o dom.Optional[*Duration]) dom.Optional[*time.Duration] {
	if !o.Set {
		return dom.Optional[*time.Duration]{}
	}
	if o.Value == nil {
		return dom.Some[*time.Duration](nil)
	}
	d := o.Value.Duration
	return dom.Some(&d)
}
