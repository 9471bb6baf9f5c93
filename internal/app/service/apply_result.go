package service

// ApplyResult 외부 이벤트(웹훅/폴링) 적용 결과.
// 멱등 경로는 항상 세 값 중 하나로 끝난다.
type ApplyResult string

const (
	ApplyResultApplied        ApplyResult = "APPLIED"         // 상태가 실제로 바뀜
	ApplyResultAlreadyApplied ApplyResult = "ALREADY_APPLIED" // 같은 결론이 이미 반영됨
	ApplyResultRejected       ApplyResult = "REJECTED"        // 적용 불가 (역행, 불일치, 미지원)
)
