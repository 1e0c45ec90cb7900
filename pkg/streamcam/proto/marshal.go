package proto

import "encoding/json"

func MarshalLogin(userName, password string) ([]byte, error) {
	return json.Marshal(&LoginMessage{
		Action:   ActionLogin,
		UserName: userName,
		Password: password,
	})
}

func MarshalGetPersonCount() ([]byte, error) {
	return json.Marshal(&CommandMessage{Action: ActionGetPersonCount})
}

func MarshalClearPersonCount() ([]byte, error) {
	return json.Marshal(&CommandMessage{Action: ActionClearPersonCount})
}
