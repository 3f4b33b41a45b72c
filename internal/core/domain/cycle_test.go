package domain

import "testing"

func TestCycle_EveryHandledTypeHasSuccessors(t *testing.T) {
	for _, typ := range Handled() {
		if len(Successors(typ)) == 0 {
			t.Errorf("%s has no successors", typ)
		}
	}
	if len(Successors(TypeAPIError)) != 0 {
		t.Error("API_ERROR must be terminal")
	}
}

func TestCycle_RefreshLoopIsClosed(t *testing.T) {
	for i, cur := range RefreshLoop {
		next := RefreshLoop[(i+1)%len(RefreshLoop)]
		if !CanFollow(cur, next) {
			t.Errorf("%s cannot follow %s", next, cur)
		}
	}
}

func TestCycle_OnlyCallingStepsMayFail(t *testing.T) {
	cases := map[EventType]bool{
		TypeFetchWeather:        true,
		TypeWeatherIDReceived:   true,
		TypeWeatherDataReceived: false,
		TypeFetchDroneData:      true,
		TypeDroneDataReceived:   true,
	}
	for typ, want := range cases {
		if got := CanFollow(typ, TypeAPIError); got != want {
			t.Errorf("CanFollow(%s, API_ERROR) = %v, want %v", typ, got, want)
		}
	}
}

func TestCycle_SuccessorsReturnsCopy(t *testing.T) {
	s := Successors(TypeFetchWeather)
	s[0] = TypeAPIError
	if Successors(TypeFetchWeather)[0] != TypeWeatherIDReceived {
		t.Error("Successors must not expose the internal table")
	}
}
