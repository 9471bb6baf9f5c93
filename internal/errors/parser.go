package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 에러를 파싱하여 사용자 친화적인 메시지와 코드로 변환
// 보안상 민감한 정보는 숨기되, 호출 측이 문제를 파악할 수 있는 정보 제공
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. PostgreSQL 에러 파싱

	// 2-1. Unique constraint violation (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStr)
	}

	// 2-2. Foreign key constraint violation (23503)
	if strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "참조하는 데이터를 찾을 수 없습니다",
		}
	}

	// 2-3. Not null constraint violation (23502)
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "필수 항목이 누락되었습니다",
		}
	}

	// 3. 네트워크/연결 에러
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}

	// 4. 기본 내부 서버 오류
	return ErrorInfo{
		Code:    InternalServerError,
		Message: "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요",
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	// 주문/결제/환불/배송 번호 중복 (번호 생성기 충돌, 재시도로 해결)
	if strings.Contains(errLower, "order_no") || strings.Contains(errLower, "payment_no") ||
		strings.Contains(errLower, "refund_no") || strings.Contains(errLower, "shipment_no") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "번호 생성이 충돌했습니다. 다시 시도해주세요",
		}
	}

	// 게이트웨이 ID 중복 (동일 결제/환불의 중복 기록 시도)
	if strings.Contains(errLower, "external_id") || strings.Contains(errLower, "external_refund_id") {
		return ErrorInfo{
			Code:    PaymentDuplicateExternal,
			Message: "이미 등록된 게이트웨이 거래입니다",
		}
	}

	// 배송 이벤트 중복 (멱등 키 충돌)
	if strings.Contains(errLower, "uidx_shipment_event") {
		return ErrorInfo{
			Code:    ShipmentDuplicate,
			Message: "이미 처리된 배송 이벤트입니다",
		}
	}

	// 배송 항목 중복
	if strings.Contains(errLower, "uidx_shipment_order_item") {
		return ErrorInfo{
			Code:    ShipmentDuplicate,
			Message: "하나의 배송에 같은 주문 항목을 중복해서 담을 수 없습니다",
		}
	}

	// SKU 코드 중복
	if strings.Contains(errLower, "sku_code") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "이미 등록된 SKU 코드입니다",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "이미 존재하는 데이터입니다",
	}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "order") || strings.Contains(contextLower, "주문") {
		return "주문을 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "payment") || strings.Contains(contextLower, "결제") {
		return "결제를 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "refund") || strings.Contains(contextLower, "환불") {
		return "환불을 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "shipment") || strings.Contains(contextLower, "배송") {
		return "배송을 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "sku") || strings.Contains(contextLower, "재고") {
		return "SKU를 찾을 수 없습니다"
	}

	return "요청한 데이터를 찾을 수 없습니다"
}
