package handler

import "github.com/roviton/dispatch-api/internal/core/ports"

func toCreateLoadInput(req createLoadRequest, idempotencyKey string) ports.CreateLoadInput {
	return ports.CreateLoadInput{
		CustomerName:   req.CustomerName,
		Origin:         toStopInput(req.Origin),
		Destination:    toStopInput(req.Destination),
		Equipment:      req.Equipment,
		RateAmount:     req.RateAmount,
		RateCurrency:   req.RateCurrency,
		PickupDate:     req.PickupDate,
		DeliveryDate:   req.DeliveryDate,
		OrganizationID: req.OrganizationID,
		IdempotencyKey: idempotencyKey,
	}
}

func toStopInput(s stopRequest) ports.StopInput {
	return ports.StopInput{Address: s.Address, City: s.City, State: s.State, ZipCode: s.ZipCode}
}

func fromStopInput(s ports.StopInput) stopRequest {
	return stopRequest{Address: s.Address, City: s.City, State: s.State, ZipCode: s.ZipCode}
}

func toLoadDetailResponse(d *ports.LoadDetail) loadDetailResponse {
	resp := loadDetailResponse{
		ReferenceNumber: d.ReferenceNumber,
		Status:          d.Status,
		CustomerName:    d.CustomerName,
		DriverID:        d.DriverID,
		Origin:          fromStopInput(d.Origin),
		Destination:     fromStopInput(d.Destination),
		Equipment:       d.Equipment,
		RateAmount:      d.RateAmount,
		RateCurrency:    d.RateCurrency,
		PickupDate:      d.PickupDate,
		DeliveryDate:    d.DeliveryDate,
		CreatedAt:       d.CreatedAt,
	}
	for _, item := range d.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, loadStatusItemResponse{
			Status:    item.Status,
			Timestamp: item.Timestamp,
			Notes:     item.Notes,
		})
	}
	return resp
}

func toListLoadsResponse(r *ports.ListLoadsResult) listLoadsResponse {
	resp := listLoadsResponse{
		Items:      make([]loadSummaryResponse, 0, len(r.Items)),
		Total:      r.Total,
		Page:       r.Page,
		Limit:      r.Limit,
		TotalPages: r.TotalPages,
	}
	for _, item := range r.Items {
		resp.Items = append(resp.Items, loadSummaryResponse{
			ReferenceNumber: item.ReferenceNumber,
			Status:          item.Status,
			CustomerName:    item.CustomerName,
			DriverID:        item.DriverID,
			Equipment:       item.Equipment,
			Origin:          fromStopInput(item.Origin),
			Destination:     fromStopInput(item.Destination),
			RateAmount:      item.RateAmount,
			PickupDate:      item.PickupDate,
			DeliveryDate:    item.DeliveryDate,
		})
	}
	return resp
}
