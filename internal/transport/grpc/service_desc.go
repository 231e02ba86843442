package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	availabilityServiceName = "appointly.v1.Availability"
	appointmentsServiceName = "appointly.v1.Appointments"
)

// AvailabilityHandler is the server side of appointly.v1.Availability.
type AvailabilityHandler interface {
	GetAvailability(context.Context, *GetAvailabilityRequest) (*GetAvailabilityResponse, error)
	GetAvailabilityRange(context.Context, *GetAvailabilityRangeRequest) (*GetAvailabilityRangeResponse, error)
	GetNextAvailableSlots(context.Context, *GetNextAvailableSlotsRequest) (*GetNextAvailableSlotsResponse, error)
	CheckConflicts(context.Context, *CheckConflictsRequest) (*CheckConflictsResponse, error)
	GenerateOccurrences(context.Context, *GenerateOccurrencesRequest) (*GenerateOccurrencesResponse, error)
	ValidatePattern(context.Context, *ValidatePatternRequest) (*ValidatePatternResponse, error)
	DescribePattern(context.Context, *DescribePatternRequest) (*DescribePatternResponse, error)
}

// AppointmentsHandler is the server side of appointly.v1.Appointments.
type AppointmentsHandler interface {
	BookAppointment(context.Context, *BookAppointmentRequest) (*BookAppointmentResponse, error)
	RescheduleAppointment(context.Context, *RescheduleAppointmentRequest) (*RescheduleAppointmentResponse, error)
	CancelAppointment(context.Context, *CancelAppointmentRequest) (*CancelAppointmentResponse, error)
	CancelSeries(context.Context, *CancelSeriesRequest) (*CancelSeriesResponse, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
}

var (
	_ AvailabilityHandler = (*AvailabilityServer)(nil)
	_ AppointmentsHandler = (*AppointmentsServer)(nil)
)

var AvailabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityHandler)(nil),
	Methods: []grpc.MethodDesc{
		method(availabilityServiceName, "GetAvailability", AvailabilityHandler.GetAvailability),
		method(availabilityServiceName, "GetAvailabilityRange", AvailabilityHandler.GetAvailabilityRange),
		method(availabilityServiceName, "GetNextAvailableSlots", AvailabilityHandler.GetNextAvailableSlots),
		method(availabilityServiceName, "CheckConflicts", AvailabilityHandler.CheckConflicts),
		method(availabilityServiceName, "GenerateOccurrences", AvailabilityHandler.GenerateOccurrences),
		method(availabilityServiceName, "ValidatePattern", AvailabilityHandler.ValidatePattern),
		method(availabilityServiceName, "DescribePattern", AvailabilityHandler.DescribePattern),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appointly/v1/availability",
}

var AppointmentsServiceDesc = grpc.ServiceDesc{
	ServiceName: appointmentsServiceName,
	HandlerType: (*AppointmentsHandler)(nil),
	Methods: []grpc.MethodDesc{
		method(appointmentsServiceName, "BookAppointment", AppointmentsHandler.BookAppointment),
		method(appointmentsServiceName, "RescheduleAppointment", AppointmentsHandler.RescheduleAppointment),
		method(appointmentsServiceName, "CancelAppointment", AppointmentsHandler.CancelAppointment),
		method(appointmentsServiceName, "CancelSeries", AppointmentsHandler.CancelSeries),
		method(appointmentsServiceName, "ListAppointments", AppointmentsHandler.ListAppointments),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appointly/v1/appointments",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, h AvailabilityHandler) {
	s.RegisterService(&AvailabilityServiceDesc, h)
}

func RegisterAppointmentsServer(s grpc.ServiceRegistrar, h AppointmentsHandler) {
	s.RegisterService(&AppointmentsServiceDesc, h)
}

// method builds a unary MethodDesc that decodes into Req and dispatches to fn
// through the server's interceptor chain.
func method[H, Req, Resp any](service, name string, fn func(H, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(H), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(H), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
