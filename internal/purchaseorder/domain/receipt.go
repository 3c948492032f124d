package domain

import "github.com/shopspring/decimal"

// ComputeReceiptStatus derives the order level receipt status from its
// stockable lines. Orders not yet confirmed are never received.
func ComputeReceiptStatus(state State, lines []Line) ReceiptStatus {
	if state != StatePurchase && state != StateDone {
		return ReceiptStatusNo
	}

	ordered := decimal.Zero
	received := decimal.Zero
	stockable := 0
	for _, line := range lines {
		if !line.ProductType.Stockable() {
			continue
		}
		stockable++
		ordered = ordered.Add(line.ProductQty)
		received = received.Add(line.QtyReceived)
	}
	if stockable == 0 {
		return ReceiptStatusNo
	}
	return classifyReceipt(ordered, received)
}

// ComputeLineReceiptStatus applies the same thresholds to a single line.
func ComputeLineReceiptStatus(line Line) ReceiptStatus {
	if !line.ProductType.Stockable() {
		return ReceiptStatusNo
	}
	return classifyReceipt(line.ProductQty, line.QtyReceived)
}

func classifyReceipt(ordered, received decimal.Decimal) ReceiptStatus {
	switch {
	case received.IsZero():
		return ReceiptStatusNo
	case received.GreaterThanOrEqual(ordered):
		return ReceiptStatusFull
	default:
		return ReceiptStatusPartial
	}
}
