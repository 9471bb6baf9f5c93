package seventeentrack

// Target statuses produced by Normalize. The values match the shipment
// status codes used by the fulfillment domain.
const (
	TargetLabelCreated      = "LABEL_CREATED"
	TargetPickedUp          = "PICKED_UP"
	TargetInTransit         = "IN_TRANSIT"
	TargetCustomsProcessing = "CUSTOMS_PROCESSING"
	TargetCustomsHold       = "CUSTOMS_HOLD"
	TargetCustomsReleased   = "CUSTOMS_RELEASED"
	TargetHandedOver        = "HANDED_OVER"
	TargetOutForDelivery    = "OUT_FOR_DELIVERY"
	TargetDelivered         = "DELIVERED"
	TargetException         = "EXCEPTION"
	TargetReturned          = "RETURNED"
	TargetCancelled         = "CANCELLED"
	TargetLost              = "LOST"
)

// subStatusTargets maps provider sub statuses to domain statuses.
// Sub statuses missing here fall back to the main status mapping.
var subStatusTargets = map[string]string{
	"InTransit_PickedUp":                    TargetPickedUp,
	"InTransit_CustomsProcessing":           TargetCustomsProcessing,
	"InTransit_CustomsRequiringInformation": TargetCustomsHold,
	"InTransit_CustomsReleased":             TargetCustomsReleased,
	"InTransit_HandedOver":                  TargetHandedOver,
	"Exception_Returning":                   TargetException,
	"Exception_Returned":                    TargetReturned,
	"Exception_Cancel":                      TargetCancelled,
	"Exception_Lost":                        TargetLost,
	"Exception_Destroyed":                   TargetLost,
}

// statusTargets maps provider main statuses to domain statuses
var statusTargets = map[string]string{
	"InfoReceived":       TargetLabelCreated,
	"InTransit":          TargetInTransit,
	"AvailableForPickup": TargetHandedOver,
	"OutForDelivery":     TargetOutForDelivery,
	"Delivered":          TargetDelivered,
	"DeliveryFailure":    TargetException,
	"Exception":          TargetException,
}

// keepCurrent lists statuses that carry no positional information.
// Events with these statuses are recorded without a transition.
var keepCurrent = map[string]bool{
	"Expired":  true,
	"NotFound": true,
}

// Normalize maps a provider status pair to a domain target status.
// ok is false when the event should be recorded without a transition.
func Normalize(status, subStatus string) (target string, ok bool) {
	if target, found := subStatusTargets[subStatus]; found {
		return target, true
	}
	if keepCurrent[status] {
		return "", false
	}
	if target, found := statusTargets[status]; found {
		return target, true
	}
	return "", false
}

// InvalidCode reports whether the push says the tracking number is unknown
// to the carrier. Such events are dropped once the shipment has progressed
// past label creation, since late carrier imports produce them spuriously.
func InvalidCode(subStatus string) bool {
	return subStatus == "NotFound_InvalidCode"
}
