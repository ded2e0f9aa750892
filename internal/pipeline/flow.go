package pipeline

// Flow names the kind of operation a pipeline execution serves. It carries no payload.
type Flow int

const (
	FlowUnknown Flow = iota
	FlowPaymentLinkCreate
	FlowPaymentLinkRetrieve
	FlowPaymentLinkInitiate
	FlowPaymentLinkComplete
	FlowPaymentLinkList
)

func (f Flow) String() string {
	switch f {
	case FlowPaymentLinkCreate:
		return "payment_link_create"
	case FlowPaymentLinkRetrieve:
		return "payment_link_retrieve"
	case FlowPaymentLinkInitiate:
		return "payment_link_initiate"
	case FlowPaymentLinkComplete:
		return "payment_link_complete"
	case FlowPaymentLinkList:
		return "payment_link_list"
	default:
		return "unknown"
	}
}
