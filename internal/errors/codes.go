package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드/연동 시스템에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized  = "AUTH_UNAUTHORIZED"    // 인증 필요
	AuthTokenExpired  = "AUTH_TOKEN_EXPIRED"   // 토큰 만료
	AuthTokenInvalid  = "AUTH_TOKEN_INVALID"   // 잘못된 토큰
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // 접근 권한 없음
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"     // 관리자만 가능
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // 권한 정보 없음

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidAmount = "VALIDATION_INVALID_AMOUNT" // 잘못된 금액
	ValidationCurrency      = "VALIDATION_CURRENCY"       // 통화 불일치
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // 잘못된 ID/번호

	// ==================== 주문 (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"           // 주문 없음
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"  // 허용되지 않은 상태 전이
	OrderNotPayable        = "ORDER_NOT_PAYABLE"         // 결제 가능 상태 아님
	OrderEmptyItems        = "ORDER_EMPTY_ITEMS"         // 주문 항목 없음

	// ==================== 재고 (INVENTORY_) ====================
	InventoryInsufficientStock = "INVENTORY_INSUFFICIENT_STOCK" // 재고 부족
	InventorySkuNotFound       = "INVENTORY_SKU_NOT_FOUND"      // SKU 없음

	// ==================== 결제 (PAYMENT_) ====================
	PaymentNotFound          = "PAYMENT_NOT_FOUND"          // 결제 없음
	PaymentInvalidTransition = "PAYMENT_INVALID_TRANSITION" // 허용되지 않은 상태 전이
	PaymentDuplicateExternal = "PAYMENT_DUPLICATE_EXTERNAL" // 게이트웨이 ID 중복
	PaymentGatewayError      = "PAYMENT_GATEWAY_ERROR"      // 게이트웨이 오류
	PaymentAmountMismatch    = "PAYMENT_AMOUNT_MISMATCH"    // 금액/통화 불일치

	// ==================== 환불 (REFUND_) ====================
	RefundNotFound          = "REFUND_NOT_FOUND"          // 환불 없음
	RefundInvalidTransition = "REFUND_INVALID_TRANSITION" // 허용되지 않은 상태 전이
	RefundInvalidItems      = "REFUND_INVALID_ITEMS"      // 환불 명세 오류

	// ==================== 배송 (SHIPMENT_) ====================
	ShipmentNotFound     = "SHIPMENT_NOT_FOUND"      // 배송 없음
	ShipmentEmptyItems   = "SHIPMENT_EMPTY_ITEMS"    // 배송 항목 없음
	ShipmentInvalidEvent = "SHIPMENT_INVALID_EVENT"  // 처리할 수 없는 추적 이벤트
	ShipmentDuplicate    = "SHIPMENT_DUPLICATE"      // 중복 이벤트/항목

	// ==================== 웹훅 (WEBHOOK_) ====================
	WebhookInvalidSignature = "WEBHOOK_INVALID_SIGNATURE" // 서명 검증 실패
	WebhookProcessing       = "WEBHOOK_PROCESSING"        // 동일 이벤트 처리 중
	WebhookMalformed        = "WEBHOOK_MALFORMED"         // 본문 파싱 실패

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
